package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/atlekbai/crm_backoffice/internal/db"
	"github.com/atlekbai/crm_backoffice/internal/entity"
)

func newMigrateCommand(a *app) *cobra.Command {
	var viewsOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the CRM entity tables and the saved views store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.migrate(cmd.Context(), viewsOnly)
		},
	}
	cmd.Flags().BoolVar(&viewsOnly, "views-only", false, "only migrate the saved views store")
	return cmd
}

func (a *app) migrate(ctx context.Context, viewsOnly bool) error {
	ctx = a.context(ctx)

	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !viewsOnly {
		if err := db.Migrate(ctx, pool, entity.NewRegistry()); err != nil {
			return err
		}
	}

	store, closeStore, err := openStore(a.cfg, pool)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info().Str("store", a.cfg.Store.Driver).Msg("saved views store ready")
	return nil
}
