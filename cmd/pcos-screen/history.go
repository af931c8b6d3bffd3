package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcos-screening-server/internal/service"
)

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	var (
		userID string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored screenings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			page, err := opts.newClassifier(st, logger).History(cmd.Context(), userID, limit, offset)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.output == "json" {
				return writeJSON(w, page)
			}
			fmt.Fprintf(w, "%d screenings (showing %d from offset %d)\n", page.Total, len(page.Items), page.Offset)
			for _, rec := range page.Items {
				fmt.Fprintf(w, "%s  %s  %-48s %5.1f\n",
					rec.CreatedAt.Local().Format(time.DateTime), rec.ID, rec.Result.Phenotype, rec.Result.Confidence)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Only screenings of this user")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultHistoryLimit, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Screenings to skip")
	return cmd
}

func newExportCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file|-]",
		Short: "Export every stored screening as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if len(args) == 0 || args[0] == "-" {
				return st.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}

			f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()
			if err := st.ExportJSON(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported screenings to %s\n", args[0])
			return nil
		},
	}
}

func newImportCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import screenings from a JSON export, skipping IDs already stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer f.Close()

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			imported, skipped, err := st.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d screenings, skipped %d\n", imported, skipped)
			return nil
		},
	}
}
