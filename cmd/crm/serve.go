package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/atlekbai/crm_backoffice/internal/db"
	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
	"github.com/atlekbai/crm_backoffice/internal/handler"
	"github.com/atlekbai/crm_backoffice/internal/metrics"
	"github.com/atlekbai/crm_backoffice/internal/query"
	"github.com/atlekbai/crm_backoffice/internal/server"
	"github.com/atlekbai/crm_backoffice/internal/view"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the saved views HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringP("port", "p", "", "HTTP port (default 8080)")
	a.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(a.context(ctx), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg, log := a.cfg, a.logger

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, closeStore, err := openStore(cfg, pool)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	reg := entity.NewRegistry()
	m := metrics.New()

	resolver := filter.NewResolver(query.NewLookup(pool, reg),
		filter.WithConcurrency(cfg.Resolver.Concurrency),
		filter.WithLookupHook(m.IncLookup),
	)
	compiler := filter.NewCompiler(filter.WithUTCOffset(cfg.Business.UTCOffset))

	views := view.NewService(store, reg)
	executor := view.NewExecutor(views, reg, resolver, compiler, query.NewSource(pool, reg), view.WithObserver(m))
	h := handler.New(views, executor, pool, cfg.Query.DefaultLimit, cfg.Query.MaxLimit)

	srv := server.New(cfg.Addr(), server.NewRouter(h, m, log))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("store", cfg.Store.Driver).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
