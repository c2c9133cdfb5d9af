package view

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
	"github.com/atlekbai/crm_backoffice/internal/query"
)

// PGDB is the subset of pgxpool.Pool used by PGStore.
type PGDB interface {
	query.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PGStore keeps views in the crm.saved_views table.
type PGStore struct {
	db PGDB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db PGDB) *PGStore {
	return &PGStore{db: db}
}

var (
	viewsTable = entity.QuoteIdent(entity.Schema) + `."saved_views"`
	usersTable = entity.QuoteIdent(entity.Schema) + `."users"`
)

var pgSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS "crm"`,
	`CREATE TABLE IF NOT EXISTS "crm"."users" (
		"id"         uuid PRIMARY KEY,
		"first_name" text NOT NULL DEFAULT '',
		"last_name"  text NOT NULL DEFAULT '',
		"email"      text NOT NULL DEFAULT '',
		"created_at" timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS "crm"."saved_views" (
		"id"         uuid PRIMARY KEY,
		"name"       text NOT NULL,
		"entity"     text NOT NULL,
		"filters"    jsonb NOT NULL DEFAULT '[]',
		"columns"    jsonb NOT NULL DEFAULT '[]',
		"sort_by"    text,
		"sort_order" text,
		"is_default" boolean NOT NULL DEFAULT false,
		"is_public"  boolean NOT NULL DEFAULT false,
		"created_by" uuid NOT NULL,
		"created_at" timestamptz NOT NULL DEFAULT now(),
		"updated_at" timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS "saved_views_owner_entity_idx"
		ON "crm"."saved_views" ("created_by", "entity")`,
	`CREATE UNIQUE INDEX IF NOT EXISTS "saved_views_one_default_idx"
		ON "crm"."saved_views" ("created_by", "entity") WHERE "is_default"`,
}

func (s *PGStore) Migrate(ctx context.Context) error {
	for _, stmt := range pgSchema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate saved views")
		}
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func selectViews() sq.SelectBuilder {
	return sq.Select(
		`v."id"`, `v."name"`, `v."entity"`, `v."filters"`, `v."columns"`,
		`v."sort_by"`, `v."sort_order"`, `v."is_default"`, `v."is_public"`,
		`v."created_by"`, `v."created_at"`, `v."updated_at"`,
		`u."id"`, `u."first_name"`, `u."last_name"`, `u."email"`,
	).
		From(viewsTable + ` v`).
		LeftJoin(usersTable + ` u ON u."id" = v."created_by"`).
		PlaceholderFormat(sq.Dollar)
}

func scanView(row pgx.CollectableRow) (View, error) {
	var (
		v                 View
		ent               string
		filters, columns  []byte
		sortOrder         *string
		creatorID         *uuid.UUID
		first, last, mail *string
	)
	err := row.Scan(
		&v.ID, &v.Name, &ent, &filters, &columns,
		&v.SortBy, &sortOrder, &v.IsDefault, &v.IsPublic,
		&v.CreatedBy, &v.CreatedAt, &v.UpdatedAt,
		&creatorID, &first, &last, &mail,
	)
	if err != nil {
		return View{}, err
	}

	v.Entity = entity.Name(ent)
	if err := json.Unmarshal(filters, &v.Filters); err != nil {
		return View{}, errors.Wrapf(err, "view %s filters", v.ID)
	}
	if err := json.Unmarshal(columns, &v.Columns); err != nil {
		return View{}, errors.Wrapf(err, "view %s columns", v.ID)
	}
	if sortOrder != nil {
		dir := filter.Direction(*sortOrder)
		v.SortOrder = &dir
	}
	if creatorID != nil {
		v.Creator = &Creator{
			ID:    *creatorID,
			Name:  displayName(deref(first), deref(last)),
			Email: deref(mail),
		}
	}
	return v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *PGStore) List(ctx context.Context, q ListQuery) ([]View, error) {
	qb := selectViews().
		Where(sq.Or{sq.Eq{`v."created_by"`: q.Requester.String()}, sq.Eq{`v."is_public"`: true}}).
		OrderBy(`v."is_default" DESC`, `v."name" ASC`)
	if q.Entity != nil {
		qb = qb.Where(sq.Eq{`v."entity"`: string(*q.Entity)})
	}

	sqlStr, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list views")
	}
	return pgx.CollectRows(rows, scanView)
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	return getView(ctx, s.db, id)
}

func getView(ctx context.Context, db query.Querier, id uuid.UUID) (*View, error) {
	sqlStr, args, err := selectViews().Where(sq.Eq{`v."id"`: id.String()}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "get view")
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanView)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get view")
	}
	return &v, nil
}

func (s *PGStore) Create(ctx context.Context, v *View) (*View, error) {
	filters, columns, err := encodeLists(v)
	if err != nil {
		return nil, err
	}

	var out *View
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := clearDefaults(ctx, tx, v); err != nil {
			return err
		}
		sqlStr, args, err := sq.Insert(viewsTable).
			Columns(`"id"`, `"name"`, `"entity"`, `"filters"`, `"columns"`, `"sort_by"`, `"sort_order"`,
				`"is_default"`, `"is_public"`, `"created_by"`, `"created_at"`, `"updated_at"`).
			Values(v.ID, v.Name, string(v.Entity), filters, columns, v.SortBy, sortOrder(v),
				v.IsDefault, v.IsPublic, v.CreatedBy, v.CreatedAt, v.UpdatedAt).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
			return errors.Wrap(err, "insert view")
		}
		out, err = getView(ctx, tx, v.ID)
		return err
	})
	return out, err
}

func (s *PGStore) Update(ctx context.Context, v *View) (*View, error) {
	filters, columns, err := encodeLists(v)
	if err != nil {
		return nil, err
	}

	var out *View
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := clearDefaults(ctx, tx, v); err != nil {
			return err
		}
		sqlStr, args, err := sq.Update(viewsTable).
			Set(`"name"`, v.Name).
			Set(`"entity"`, string(v.Entity)).
			Set(`"filters"`, filters).
			Set(`"columns"`, columns).
			Set(`"sort_by"`, v.SortBy).
			Set(`"sort_order"`, sortOrder(v)).
			Set(`"is_default"`, v.IsDefault).
			Set(`"is_public"`, v.IsPublic).
			Set(`"updated_at"`, v.UpdatedAt).
			Where(sq.Eq{`"id"`: v.ID.String()}).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, sqlStr, args...)
		if err != nil {
			return errors.Wrap(err, "update view")
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrapf(ErrNotFound, "%s", v.ID)
		}
		out, err = getView(ctx, tx, v.ID)
		return err
	})
	return out, err
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	sqlStr, args, err := sq.Delete(viewsTable).
		Where(sq.Eq{`"id"`: id.String()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return errors.Wrap(err, "delete view")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

// clearDefaults unsets is_default on the creator's other views for the same
// entity. It must run before the write that sets the new default.
func clearDefaults(ctx context.Context, tx pgx.Tx, v *View) error {
	if !v.IsDefault {
		return nil
	}
	sqlStr, args, err := ClearDefaultsSQL(v)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
		return errors.Wrap(err, "clear default views")
	}
	return nil
}

// ClearDefaultsSQL builds the statement that unsets other default views of
// v's creator and entity.
func ClearDefaultsSQL(v *View) (string, []any, error) {
	return sq.Update(viewsTable).
		Set(`"is_default"`, false).
		Set(`"updated_at"`, v.UpdatedAt).
		Where(sq.Eq{
			`"created_by"`: v.CreatedBy.String(),
			`"entity"`:     string(v.Entity),
			`"is_default"`: true,
		}).
		Where(sq.NotEq{`"id"`: v.ID.String()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func encodeLists(v *View) (string, string, error) {
	filters, err := json.Marshal(v.Filters)
	if err != nil {
		return "", "", errors.Wrap(err, "encode filters")
	}
	columns, err := json.Marshal(v.Columns)
	if err != nil {
		return "", "", errors.Wrap(err, "encode columns")
	}
	return string(filters), string(columns), nil
}

func sortOrder(v *View) *string {
	if v.SortOrder == nil {
		return nil
	}
	s := string(*v.SortOrder)
	return &s
}
