package query

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
)

// Querier is the subset of pgxpool.Pool used for reads.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Querier is also satisfied by pgx.Tx and *pgx.Conn.
var _ Querier = (pgx.Tx)(nil)

// Source runs translated view queries against the CRM tables.
type Source struct {
	db  Querier
	reg *entity.Registry
}

func NewSource(db Querier, reg *entity.Registry) *Source {
	return &Source{db: db, reg: reg}
}

// Find returns one page of records as raw JSON objects.
func (s *Source) Find(ctx context.Context, entry *entity.Entry, where filter.Where, order filter.Order, offset, limit int) ([]json.RawMessage, error) {
	sqlStr, args, err := NewBuilder(s.reg, entry).BuildList(where, order, offset, limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", entry.Name)
	}
	data, err := pgx.CollectRows(rows, pgx.RowTo[json.RawMessage])
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", entry.Name)
	}
	return data, nil
}

// Count returns the number of records matching where.
func (s *Source) Count(ctx context.Context, entry *entity.Entry, where filter.Where) (int64, error) {
	sqlStr, args, err := NewBuilder(s.reg, entry).BuildCount(where)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(err, "count %s", entry.Name)
	}
	return count, nil
}
