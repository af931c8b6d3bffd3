package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pcos-screening-server/internal/cache"
	"github.com/pcos-screening-server/internal/config"
	"github.com/pcos-screening-server/internal/domain"
	"github.com/pcos-screening-server/internal/narrative"
	"github.com/pcos-screening-server/internal/service"
	"github.com/pcos-screening-server/internal/store"
)

// cliOptions holds the persistent flags shared by every subcommand.
type cliOptions struct {
	storePath  string
	configPath string
	logLevel   string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "pcos-screen",
		Short: "Explainable PCOS pre-screening",
		Long: "pcos-screen classifies self-reported symptom records into PCOS phenotypes with " +
			"a confidence score and the reasons behind it. Educational guidance only, not a diagnosis.",
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "json" && opts.output != "text" {
				return fmt.Errorf("unsupported output format %q (use json or text)", opts.output)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storePath, "store", "", "SQLite screening database (default $PCOS_DB_PATH or ~/.pcos-screen/screenings.db)")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Server config file, used by migrate")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")

	root.AddCommand(
		newClassifyCmd(opts),
		newRulesCmd(opts),
		newHistoryCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newMigrateCmd(opts),
		newSetupCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and rule set version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pcos-screen %s (rules %s)\n", version, service.RuleVersion)
		},
	}
}

// liteConfig resolves the environment configuration with flag overrides.
func (o *cliOptions) liteConfig() *config.LiteConfig {
	cfg := config.LoadLiteConfig()
	if o.storePath != "" {
		cfg.DBPath = o.storePath
	}
	cfg.LogLevel = o.logLevel
	cfg.LogFormat = "text"
	return cfg
}

func (o *cliOptions) logger() (*logrus.Logger, error) {
	return config.NewLogger(o.liteConfig().Logging())
}

// openStore opens the SQLite store named by the flags.
func (o *cliOptions) openStore() (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(o.liteConfig().ScreeningDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening screening store: %w", err)
	}
	return st, nil
}

// newClassifier builds the screening service. A nil store disables persistence.
func (o *cliOptions) newClassifier(st store.Store, logger *logrus.Logger) *service.ClassifierService {
	cfg := o.liteConfig()
	var repo domain.ScreeningRepository
	if st != nil {
		repo = st
	}
	narrator := narrative.NewFromConfig(cfg.Narrative(), logger)
	return service.NewClassifierService(logger, repo, cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL), narrator)
}
