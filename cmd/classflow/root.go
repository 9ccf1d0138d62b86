package main

import (
	"fmt"

	"github.com/aescanero/classflow/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// globalOptions are the persistent flags shared by every command. Set
// flags override the environment configuration.
type globalOptions struct {
	store    string
	dbPath   string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "classflow",
		Short:         "Plan and run classroom workflows as resumable task graphs.",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.store, "store", "", "Job store backend: memory|redis|sqlite (default $STORE_BACKEND)")
	flags.StringVar(&opts.dbPath, "db", "", "Path to the SQLite job store (default $STORE_SQLITE_PATH)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (default $LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(opts),
		newPlanCmd(opts),
		newRunCmd(opts),
		newShowCmd(opts),
		newJobsCmd(opts),
		newActionsCmd(opts),
	)

	return root
}

// load reads the environment configuration, applies flag overrides and
// builds the logger.
func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("store") {
		cfg.Store.Backend = o.store
	}
	if cmd.Flags().Changed("db") {
		cfg.Store.SQLitePath = o.dbPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}

// initLogger initializes the logger based on log level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}
