// Package db opens the Postgres pool and creates the CRM entity tables.
package db

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

// ConnectTimeout bounds how long NewPool keeps retrying an unreachable server.
var ConnectTimeout = 30 * time.Second

// NewPool connects to url and pings it, retrying with exponential backoff
// while the server is coming up.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}

	logger := zerolog.Ctx(ctx)
	connect := func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	}

	pool, err := backoff.Retry(ctx, connect,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(ConnectTimeout),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn().Err(err).Dur("retry_in", wait).Msg("database not ready")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	return pool, nil
}

// Migrate creates the schema and one table per registered entity.
func Migrate(ctx context.Context, pool *pgxpool.Pool, reg *entity.Registry) error {
	for _, stmt := range SchemaSQL(reg) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	zerolog.Ctx(ctx).Info().Int("entities", len(reg.Entries())).Msg("entity tables ready")
	return nil
}

// SchemaSQL returns the DDL for every entity, parents before children.
func SchemaSQL(reg *entity.Registry) []string {
	stmts := []string{`CREATE SCHEMA IF NOT EXISTS ` + entity.QuoteIdent(entity.Schema)}
	for _, e := range reg.Entries() {
		stmts = append(stmts, tableSQL(reg, e))
	}
	return stmts
}

func tableSQL(reg *entity.Registry, e *entity.Entry) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(e.TableName())
	b.WriteString(" (\n")
	for i, a := range e.Attributes {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("\t")
		b.WriteString(entity.QuoteIdent(a.Column))
		b.WriteString(" ")
		b.WriteString(columnType(reg, &a))
	}
	b.WriteString("\n)")
	return b.String()
}

func columnType(reg *entity.Registry, a *entity.Attribute) string {
	switch a.Type {
	case entity.AttrID:
		return "uuid PRIMARY KEY DEFAULT gen_random_uuid()"
	case entity.AttrNumber:
		return "numeric"
	case entity.AttrDate:
		if a.Name == "createdAt" {
			return "timestamptz NOT NULL DEFAULT now()"
		}
		return "timestamptz"
	case entity.AttrBoolean:
		return "boolean NOT NULL DEFAULT false"
	case entity.AttrRelation:
		return "uuid REFERENCES " + reg.Get(a.Target).TableName() + ` ("id")`
	default:
		return "text"
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
