package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/focuslock/focuslock/internal/model"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the focus timer",
	Long: `Show the focus timer and schedule of the running daemon.

With --watch the countdown is refreshed every second until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "refresh every second")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	status, err := c.Timer(ctx)
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	if !statusWatch {
		printStatus(status)
		if info, err := c.Schedule(ctx); err == nil && info.Scheduled {
			switch {
			case info.InWindow:
				fmt.Printf("Scheduled window ends at %s.\n", info.CurrentEnd)
			case info.NextStart != "":
				fmt.Printf("Next scheduled window starts at %s.\n", info.NextStart)
			default:
				fmt.Println("No more scheduled windows today.")
			}
		}
		return nil
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		line := statusLine(status)
		if interactive {
			fmt.Printf("\r\033[K%s", line)
		} else {
			fmt.Println(line)
		}

		select {
		case <-ctx.Done():
			if interactive {
				fmt.Println()
			}
			return nil
		case <-ticker.C:
		}

		if status, err = c.Timer(ctx); err != nil {
			if interactive {
				fmt.Println()
			}
			return fmt.Errorf("failed to read status: %w", err)
		}
	}
}

func statusLine(status model.TimerStatus) string {
	switch status.State {
	case model.StateIdle:
		return "idle"
	case model.StatePaused:
		return fmt.Sprintf("paused  %s", formatSeconds(status.RemainingSeconds))
	default:
		return fmt.Sprintf("%-8s %s / %s", status.State, formatSeconds(status.RemainingSeconds), formatSeconds(status.TotalSeconds))
	}
}
