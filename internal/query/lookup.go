package query

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
)

// Lookup answers the relation-name queries of filter.Resolver from Postgres.
type Lookup struct {
	db  Querier
	reg *entity.Registry
}

var _ filter.Lookup = (*Lookup)(nil)

func NewLookup(db Querier, reg *entity.Registry) *Lookup {
	return &Lookup{db: db, reg: reg}
}

// MatchIDs finds target records by display name.
func (l *Lookup) MatchIDs(ctx context.Context, target entity.Name, text string, substring bool) ([]string, error) {
	sqlStr, args, err := MatchIDsSQL(l.reg.Get(target), text, substring)
	if err != nil {
		return nil, err
	}
	return l.ids(ctx, sqlStr, args)
}

// IDsIn finds target records whose attribute holds one of ids.
func (l *Lookup) IDsIn(ctx context.Context, target entity.Name, attribute string, ids []string) ([]string, error) {
	sqlStr, args, err := IDsInSQL(l.reg.Get(target), attribute, ids)
	if err != nil {
		return nil, err
	}
	return l.ids(ctx, sqlStr, args)
}

func (l *Lookup) ids(ctx context.Context, sqlStr string, args []any) ([]string, error) {
	rows, err := l.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "lookup ids")
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// MatchIDsSQL selects ids of entry whose display attribute equals text, or
// contains it case-insensitively when substring is set.
func MatchIDsSQL(entry *entity.Entry, text string, substring bool) (string, []any, error) {
	if entry == nil {
		return "", nil, entity.ErrUnknownEntity
	}
	a := entry.Attribute(entry.Display)
	if a == nil {
		return "", nil, errors.Wrapf(ErrUnknownField, "%s.%s", entry.Name, entry.Display)
	}

	var cond sq.Sqlizer = sq.Eq{qi(a.Column): text}
	if substring {
		cond = sq.ILike{qi(a.Column): "%" + EscapeLike(text) + "%"}
	}
	return sq.Select(`"id"::text`).
		From(entry.TableName()).
		Where(cond).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// IDsInSQL selects ids of entry whose attribute is one of ids.
func IDsInSQL(entry *entity.Entry, attribute string, ids []string) (string, []any, error) {
	if entry == nil {
		return "", nil, entity.ErrUnknownEntity
	}
	a := entry.Attribute(attribute)
	if a == nil {
		return "", nil, errors.Wrapf(ErrUnknownField, "%s.%s", entry.Name, attribute)
	}
	return sq.Select(`"id"::text`).
		From(entry.TableName()).
		Where(sq.Eq{qi(a.Column): ids}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}
