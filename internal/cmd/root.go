package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/focuslock/focuslock/internal/client"
	"github.com/focuslock/focuslock/internal/config"
	"github.com/focuslock/focuslock/internal/logging"
)

var (
	cfgDir string
	debug  bool
)

// Debug logs a message if debug mode is enabled
func Debug(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

var rootCmd = &cobra.Command{
	Use:   "focuslock",
	Short: "Focuslock - focus sessions that block distractions",
	Long: `Focuslock runs pomodoro focus sessions and blocks distracting
websites and applications while you work.

Run the daemon:
  focuslock run

Control a session:
  focuslock start --minutes 50
  focuslock pause
  focuslock resume
  focuslock stop
  focuslock cancel

Inspect:
  focuslock status --watch
  focuslock sites`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(debug, os.Stderr)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default is ~/.focuslock)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// configDir resolves --config or the default directory, creating it if needed.
func configDir() (string, error) {
	if cfgDir == "" {
		dir, err := config.EnsureDir()
		if err != nil {
			return "", fmt.Errorf("failed to prepare config directory: %w", err)
		}
		return dir, nil
	}
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return "", fmt.Errorf("failed to prepare config directory: %w", err)
	}
	return cfgDir, nil
}

func loadConfig() (string, *config.Config, error) {
	dir, err := configDir()
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	Debug("Config loaded from %s", config.Path(dir))
	return dir, cfg, nil
}

// daemonClient returns a client for the daemon configured in the config file.
func daemonClient() (*client.Client, error) {
	_, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Server.Addr), nil
}

func formatSeconds(seconds int) string {
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), seconds%60)
}
