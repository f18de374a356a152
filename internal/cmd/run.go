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

	"github.com/focuslock/focuslock/internal/config"
	"github.com/focuslock/focuslock/internal/events"
	"github.com/focuslock/focuslock/internal/focus"
	"github.com/focuslock/focuslock/internal/server"
)

const shutdownTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the focuslock daemon",
	Long: `Run the focuslock daemon in the foreground.

The daemon owns the focus timer, the site and app blockers and the
schedule. It serves the browser extension status endpoint and the
control API used by the other commands.

On startup an unfinished session is resumed; leftover blocking from a
crash is removed otherwise. Editing the config file applies immediately.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord, err := focus.New(focus.Options{ConfigDir: dir, Config: cfg})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go logEvents(ctx, coord.Events())

	if err := coord.Startup(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	if err := config.Watch(dir, func(updated *config.Config, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring unreadable config change")
			return
		}
		if err := coord.UpdateConfig(updated); err != nil {
			log.Warn().Err(err).Msg("Ignoring invalid config change")
		}
	}); err != nil {
		log.Warn().Err(err).Msg("Config watching disabled")
	}

	srv := server.New(cfg.Server, coord)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error().Err(serveErr).Msg("HTTP server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown incomplete")
	}
	coord.CleanupOnExit(shutdownCtx)
	coord.Events().Close()

	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}
	return nil
}

// logEvents reports session milestones that have no other consumer in
// headless mode.
func logEvents(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe(32)
	defer bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Type {
			case events.TypeWorkComplete:
				log.Info().Msg("Work phase complete, break started")
			case events.TypeBreakComplete:
				log.Info().Msg("Break complete, session finished")
			case events.TypeBlockedAppDetected:
				log.Info().Str("app", ev.App).Msg("Blocked app detected")
			}
		}
	}
}
