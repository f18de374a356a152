package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/focuslock/focuslock/internal/model"
	"github.com/focuslock/focuslock/internal/server"
)

var (
	startMinutes int
	startSeconds int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a focus session",
	Long: `Start a focus session on the running daemon.

Blocked sites are written to the hosts file and firewall rules under a
single administrator prompt; the command waits until it is answered.
Blocked apps are closed for as long as the session lasts.

Examples:
  focuslock start                 # configured work duration
  focuslock start --minutes 50
  focuslock start --seconds 90    # short test session`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVarP(&startMinutes, "minutes", "m", 0, "work duration in minutes (default from config)")
	startCmd.Flags().IntVarP(&startSeconds, "seconds", "s", 0, "extra seconds added to the work duration")

	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}

	var req server.StartRequest
	if cmd.Flags().Changed("minutes") {
		req.Minutes = &startMinutes
	}
	req.Seconds = startSeconds

	fmt.Println("Starting focus session (approve the administrator prompt if asked)...")
	status, err := c.Start(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	printStatus(status)
	return nil
}

func printStatus(status model.TimerStatus) {
	switch status.State {
	case model.StateIdle:
		fmt.Println("No focus session running.")
	case model.StatePaused:
		prev := model.StateWorking
		if status.PreviousState != nil {
			prev = *status.PreviousState
		}
		fmt.Printf("Paused (%s) with %s left.\n", prev, formatSeconds(status.RemainingSeconds))
	default:
		fmt.Printf("%s: %s left of %s.\n", phaseLabel(status.State), formatSeconds(status.RemainingSeconds), formatSeconds(status.TotalSeconds))
	}
	fmt.Printf("Emergency overrides left this month: %d\n", status.EmergencyRemaining)
}

func phaseLabel(state model.TimerState) string {
	switch state {
	case model.StateWorking:
		return "Focusing"
	case model.StateBreaking:
		return "On break"
	default:
		return string(state)
	}
}
