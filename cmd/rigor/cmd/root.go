package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/corey/rigor/internal/app"
	"github.com/corey/rigor/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	colorFlag   string
	noColorFlag bool
	logLevel    string

	// settings is loaded once per invocation by the root pre-run hook.
	settings *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rigor",
	Short: "rigor: score the mathematical rigor of a text",
	Long: "Scans proofs and papers for rigor markers (\"therefore\", \"by induction\", \"clearly\", ...)\n" +
		"and folds their score operators over the text in order.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		settings = cfg
		if useColor, err = resolveColor(colorFlag, noColorFlag); err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))
		return nil
	},
}

// projectRoot returns the working root (cwd). It keys the daemon socket.
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// openApp builds an in-process App. Without withStore, history is disabled
// so the command does not contend with a running daemon for the database.
func openApp(withStore bool) (*app.App, error) {
	s := *settings
	if !withStore {
		s.Store = config.StoreNone
	}
	a, err := app.New(app.Config{Root: projectRoot(), Settings: &s, Logger: slog.Default()})
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("%w\n%s", err, diagnoseDBLock(projectRoot()))
		}
		return nil, fmt.Errorf("init: %w", err)
	}
	return a, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./rigor.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(dictCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
}
