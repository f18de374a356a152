package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the focus session",
	Long: `Stop the current focus session and remove all blocking.

Stopping is always allowed and does not use an emergency override.
Use 'focuslock cancel' to end a session with an override.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "End the session with an emergency override",
	Long: `End the current focus session using one of this month's emergency
overrides. The quota resets at the start of each calendar month.`,
	Args: cobra.NoArgs,
	RunE: runCancel,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the focus session",
	Long:  `Pause the countdown. Sites stay blocked while paused.`,
	Args:  cobra.NoArgs,
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused session",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

func init() {
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	if _, err := c.Stop(cmd.Context()); err != nil {
		return fmt.Errorf("failed to stop session: %w", err)
	}
	fmt.Println("Focus session stopped.")
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	status, err := c.Cancel(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}
	fmt.Printf("Focus session cancelled. Emergency overrides left this month: %d\n", status.EmergencyRemaining)
	return nil
}

func runPause(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	status, err := c.Pause(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to pause session: %w", err)
	}
	printStatus(status)
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	status, err := c.Resume(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to resume session: %w", err)
	}
	printStatus(status)
	return nil
}
