package main

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlekbai/crm_backoffice/internal/config"
	"github.com/atlekbai/crm_backoffice/internal/view"
)

// openStore returns the saved-view store selected by store.driver. The
// closer is a no-op for the postgres store, which shares pool.
func openStore(cfg *config.Config, pool *pgxpool.Pool) (view.Store, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return view.NewPGStore(pool), nopCloser{}, nil
	case config.DriverSQLite:
		s, err := view.OpenSQLStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, errors.Newf("unknown store driver %q", cfg.Store.Driver)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
