package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Close blocked apps now",
	Long: `Scan running processes once and close any blocked app, whether or
not a session is running. Killed processes are listed.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var runningCmd = &cobra.Command{
	Use:   "running <app>",
	Short: "Report whether an app is running",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunning,
}

var hideOverlayCmd = &cobra.Command{
	Use:   "hide-overlay",
	Short: "Hide the blocked-app overlay for a few seconds",
	Args:  cobra.NoArgs,
	RunE:  runHideOverlay,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read the config file in the daemon",
	Args:  cobra.NoArgs,
	RunE:  runReload,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(runningCmd)
	rootCmd.AddCommand(hideOverlayCmd)
	rootCmd.AddCommand(reloadCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}

	killed, err := c.CheckApps(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to check apps: %w", err)
	}

	if len(killed) == 0 {
		fmt.Println("No blocked apps running.")
		return nil
	}
	for _, name := range killed {
		fmt.Printf("Closed: %s\n", name)
	}
	return nil
}

func runRunning(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}

	running, err := c.AppRunning(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to query process table: %w", err)
	}
	if running {
		fmt.Printf("%s is running.\n", args[0])
	} else {
		fmt.Printf("%s is not running.\n", args[0])
	}
	return nil
}

func runHideOverlay(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	if err := c.HideOverlay(cmd.Context()); err != nil {
		return fmt.Errorf("failed to hide overlay: %w", err)
	}
	return nil
}

func runReload(cmd *cobra.Command, args []string) error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	if err := c.ReloadConfig(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	fmt.Println("Configuration reloaded.")
	return nil
}
