package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pdfsearch/internal/bootstrap"
	"pdfsearch/internal/shared/storage/db"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the archive schema migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print migration status instead of applying")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
		if app.DB == nil {
			return errors.New("migrate needs DATABASE_URL")
		}
		if migrateStatus {
			return db.MigrationStatus(ctx, app.DB)
		}
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	})
}
