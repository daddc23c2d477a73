package main

import (
	"fmt"

	"github.com/Veraticus/carga/internal/cli"
	"github.com/Veraticus/carga/internal/common"
	"github.com/Veraticus/carga/internal/config"
	"github.com/Veraticus/carga/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on start; this one is for checking the schema
or preparing a database ahead of time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dbPath := config.DatabasePath(viper.GetViper())

			store, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			current, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			if status {
				fmt.Fprintf(cmd.OutOrStdout(), "Database:        %s\n", dbPath)
				fmt.Fprintf(cmd.OutOrStdout(), "Schema version:  %d\n", current)
				fmt.Fprintf(cmd.OutOrStdout(), "Latest version:  %d\n", storage.ExpectedSchemaVersion)
				if current < storage.ExpectedSchemaVersion {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Migrations pending; run 'carga migrate'"))
				}
				return nil
			}

			common.LogInfo("Running database migrations", common.Fields{"database": dbPath, "from": current})
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Database at schema version %d", storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the schema version without migrating")
	return cmd
}
