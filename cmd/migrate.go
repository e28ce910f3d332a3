package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/calprompt/internal/calendar/postgres"
	"github.com/teemow/calprompt/internal/config"
	"github.com/teemow/calprompt/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply or roll back the embedded schema migrations. serve applies pending
migrations on start; this command is for deployments that run them as a
separate step.`,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")

	withDB := func(cmd *cobra.Command, fn func(db *sql.DB) error) error {
		url := databaseURL
		if url == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			url = cfg.DatabaseURL
		}
		if url == "" {
			return errDatabaseRequired
		}
		db, err := postgres.Open(cmd.Context(), postgres.Options{
			URL:    url,
			Logger: logging.NewSlogAdapter(logging.NewLogger(os.Stderr, false)),
		})
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(db.DB)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(db *sql.DB) error {
				if err := postgres.MigrateUp(db); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withDB(cmd, func(db *sql.DB) error {
				if err := postgres.MigrateDown(db, steps); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(db *sql.DB) error {
				return printVersion(cmd, db)
			})
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, db *sql.DB) error {
	v, dirty, ok, err := postgres.MigrationVersion(db)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case !ok:
		_, err = fmt.Fprintln(out, "schema version: none")
	case dirty:
		_, err = fmt.Fprintf(out, "schema version: %d (dirty)\n", v)
	default:
		_, err = fmt.Fprintf(out, "schema version: %d\n", v)
	}
	return err
}
