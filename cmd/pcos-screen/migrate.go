package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcos-screening-server/internal/config"
	"github.com/pcos-screening-server/internal/database"
)

func newMigrateCmd(opts *cliOptions) *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the PostgreSQL schema of the server",
		Long:      "migrate up applies every pending migration; migrate down rolls back the latest one.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				manager *config.Manager
				err     error
			)
			if opts.configPath != "" {
				manager, err = config.NewManagerFromFile(opts.configPath)
			} else {
				manager, err = config.NewManager()
			}
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			cfg := manager.GetConfig()
			logger, err := opts.logger()
			if err != nil {
				return err
			}

			path := migrationsPath
			if path == "" {
				path = cfg.Database.MigrationsPath
			}
			runner, err := database.NewMigrationRunner(database.ConfigFrom(cfg.Database).URL(), path, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			if args[0] == "up" {
				err = runner.Up(cmd.Context())
			} else {
				err = runner.Down(cmd.Context())
			}
			if err != nil {
				return err
			}

			schemaVersion, dirty, err := runner.Version()
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty: %t)\n", schemaVersion, dirty)
			return nil
		},
	}

	cmd.Flags().StringVar(&migrationsPath, "path", "", "Migration directory (default: migrations compiled into the binary)")
	return cmd
}
