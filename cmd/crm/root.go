package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atlekbai/crm_backoffice/internal/config"
	"github.com/atlekbai/crm_backoffice/internal/logging"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	v          *viper.Viper
	configPath string
	verbose    int

	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "crm",
		Short:         "CRM back-office saved views service",
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       fmt.Sprintf("%s (%s)", Version, CommitHash),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default is ./config.yaml)")
	flags.CountVarP(&a.verbose, "verbose", "v", "-v for debug logs (-vv for trace)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.Bool("log-json", false, "emit JSON logs instead of console output")
	a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	a.v.BindPFlag("log.json", flags.Lookup("log-json"))

	cmd.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newFieldsCommand(a),
		newUsersCommand(a),
	)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.Level(logging.Verbosity(logger.GetLevel(), a.verbose))
	a.closer = closer
	zerolog.DefaultContextLogger = &a.logger

	a.logger.Debug().
		Str("config", a.v.ConfigFileUsed()).
		Str("store", cfg.Store.Driver).
		Msg("configuration loaded")
	return nil
}

// context returns ctx carrying the process logger.
func (a *app) context(ctx context.Context) context.Context {
	return a.logger.WithContext(ctx)
}
