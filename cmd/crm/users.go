package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/atlekbai/crm_backoffice/internal/config"
	"github.com/atlekbai/crm_backoffice/internal/view"
)

func newUsersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage view creators in the sqlite store",
	}

	var u view.User
	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Create or replace a user so their views show creator details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return errors.Wrapf(err, "parse user id %q", args[0])
			}
			u.ID = id
			return a.addUser(cmd.Context(), u)
		},
	}
	add.Flags().StringVar(&u.FirstName, "first-name", "", "first name")
	add.Flags().StringVar(&u.LastName, "last-name", "", "last name")
	add.Flags().StringVar(&u.Email, "email", "", "email address")

	cmd.AddCommand(add)
	return cmd
}

// addUser writes u to the sqlite store. The postgres store reads creators
// from the CRM users table, which this service does not own.
func (a *app) addUser(ctx context.Context, u view.User) error {
	ctx = a.context(ctx)
	if a.cfg.Store.Driver != config.DriverSQLite {
		return errors.Newf("users are managed by the CRM database when store.driver is %q", a.cfg.Store.Driver)
	}

	store, err := view.OpenSQLStore(a.cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if err := store.SaveUser(ctx, u); err != nil {
		return errors.Wrap(err, "save user")
	}
	a.logger.Info().Stringer("user", u.ID).Str("email", u.Email).Msg("user saved")
	return nil
}
