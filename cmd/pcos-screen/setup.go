package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcos-screening-server/internal/setup"
)

func newSetupCmd(opts *cliOptions) *cobra.Command {
	var clientConfig string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the lite MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "Client config file (default: platform location)")

	var (
		binary  string
		dataDir string
	)
	configure := &cobra.Command{
		Use:   "configure",
		Short: "Add or update the pcos-screening server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				dataDir = opts.liteConfig().DataDir
			}
			path, err := setup.Configure(setup.Options{
				ConfigPath: clientConfig,
				BinaryPath: binary,
				DataDir:    dataDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\nRestart the client to load it.\n", setup.ServerName, path)
			return nil
		},
	}
	configure.Flags().StringVar(&binary, "binary", "", "Path to "+setup.BinaryName+" (default: search PATH and common locations)")
	configure.Flags().StringVar(&dataDir, "data-dir", "", "Data directory passed to the server")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the server is registered and runnable",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := setup.GetStatus(clientConfig, opts.liteConfig().DataDir)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.output == "json" {
				return writeJSON(w, st)
			}
			fmt.Fprintf(w, "Client config:  %s\n", st.ConfigPath)
			fmt.Fprintf(w, "Configured:     %t\n", st.Configured)
			if st.ServerPath != "" {
				fmt.Fprintf(w, "Server binary:  %s\n", st.ServerPath)
			}
			fmt.Fprintf(w, "Data directory: %s (exists: %t)\n", st.DataDir, st.DataDirExists)
			for _, issue := range st.Issues {
				fmt.Fprintf(w, "  ! %s\n", issue)
			}
			return nil
		},
	}

	cmd.AddCommand(configure, status)
	return cmd
}
