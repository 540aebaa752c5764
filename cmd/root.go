package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loraset/config"
	"loraset/db"
	"loraset/logger"
)

var (
	cfg         *config.Config
	logLevel    string
	logFile     string
	sessionPath string
)

var rootCmd = &cobra.Command{
	Use:   "loraset",
	Short: "Build, label and preprocess LoRA training datasets for music generation.",
	Long: `loraset scans a folder of audio, labels each track with captions and musical
metadata from the understanding engines, lets you review and edit the result, and
turns the labeled samples into tensor bundles ready for LoRA training.

Commands share a working session file, so a dataset can be built up step by step:

  loraset scan ./music
  loraset label
  loraset edit tag --tag zx --position prepend
  loraset save -o dataset.json
  loraset preprocess -o ./preprocessed`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
		}
		return logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			Console:    true,
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		db.CloseGormDB()
		logger.Sync()
	},
}

// Execute executes the root command. An interrupt cancels the running command's
// context, which stops a batch between samples.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path, empty logs to the terminal only")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", ".loraset/session.json", "working session file shared by all commands")
}
