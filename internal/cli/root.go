package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fjglira/GoE2E-Runner/internal/config"
)

const defaultConfigFile = "e2erunner.yaml"

var (
	cfgFile string
	verbose bool
	dryRun  bool
	log     *logrus.Logger
)

// rootCmd is the base command for e2erunner.
var rootCmd = &cobra.Command{
	Use:   "e2erunner",
	Short: "Compile, run, import and publish no-code browser tests",
	Long: `GoE2E-Runner executes step-list browser tests with Playwright,
reads existing Playwright specs and plan documents back into steps,
and writes step lists out as Playwright spec files.

Everything is driven by a YAML configuration file (e2erunner.yaml)
plus E2E_* environment overrides.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = newLogger(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "do everything except writing files")

	// Initialize default logger (overridden in PersistentPreRun)
	log = newLogger(false)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func newLogger(debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// loadConfig loads and validates the configuration, then applies its
// logging section. The default config file may be absent.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	optional := !cmd.Flags().Changed("config")
	cfg, err := config.LoadWithEnv(cfgFile, optional)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if dryRun {
		cfg.DryRun = true
	}
	if err := configureLogger(log, cfg.Logging, verbose); err != nil {
		return nil, err
	}
	log.Debugf("Loaded config from %s", cfgFile)
	return cfg, nil
}

// configureLogger applies level, format and file. -v wins over the level.
func configureLogger(l *logrus.Logger, cfg config.LoggingConfig, debug bool) error {
	if cfg.Level != "" && !debug {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid logging.level %q: %w", cfg.Level, err)
		}
		l.SetLevel(level)
	}
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.SetOutput(f)
	}
	return nil
}
