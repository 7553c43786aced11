package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/syllecho/internal/config"
	"karolbroda.com/syllecho/internal/logger"
)

var (
	// global flags
	mprisService string
	envFile      string
	logLevel     string
	logFile      string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "syllecho [lyrics-file]",
	Short: "terminal karaoke viewer with syllable-synced lyrics",
	Long: `syllecho plays back word-by-word timed lyrics (lyricify syllable, qrc, lrc)
in the terminal, following a local audio file, an mpris player or a silent clock.

when run with a lyrics file and no subcommand, it starts the interactive TUI viewer.`,
	Version: "1.0.0",
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		// default behavior: run the TUI viewer
		return runViewer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name (e.g., spotify or org.mpris.MediaPlayer2.spotify)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "read SYLLECHO_* settings from this file (default ./.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error, off")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file")

	addViewerFlags(rootCmd)
}

// setup loads the env file and environment, applies the global flags on top
// and opens the log file.
func setup(cmd *cobra.Command) error {
	path := envFile
	if path == "" {
		path = os.Getenv("SYLLECHO_ENV_FILE")
	}
	if err := config.LoadEnvFile(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	cfg = config.Load()

	if mprisService != "" {
		cfg.MprisService = mprisService
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logLevel != "" {
		cfg.LogLevel = logger.ParseLevel(logLevel, cfg.LogLevel)
	}

	return logger.Init(cfg.LogFile, cfg.LogLevel)
}

func Execute() {
	err := rootCmd.Execute()
	logger.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
