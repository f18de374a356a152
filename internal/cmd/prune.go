package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/focuslock/focuslock/internal/network"
	"github.com/focuslock/focuslock/internal/session"
)

var pruneForce bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Clean up after a crashed daemon",
	Long: `Clean up state left behind when the daemon did not exit cleanly.

This command removes:
  - An expired session file
  - The hosts file block section and firewall rules, when no session remains

An unexpired session is kept so the daemon can resume it. Use --force to
remove it anyway. Run this only while the daemon is stopped.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

var unblockCmd = &cobra.Command{
	Use:   "unblock",
	Short: "Remove site blocking immediately",
	Long: `Remove the focuslock section from the hosts file, flush the firewall
anchor and refresh the DNS cache. Needs write access to the hosts file.`,
	Args: cobra.NoArgs,
	RunE: runUnblock,
}

func init() {
	pruneCmd.Flags().BoolVarP(&pruneForce, "force", "f", false, "also remove an unexpired session")

	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(unblockCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := session.NewStore(dir)
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	sess, err := store.Load()
	switch {
	case errors.Is(err, session.ErrNotFound):
		fmt.Println("No session to remove.")
	case err != nil:
		fmt.Printf("Warning: unreadable session file, removing: %v\n", err)
		if err := store.Delete(); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	case sess.Expired(time.Now()) || pruneForce:
		if err := store.Delete(); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		fmt.Printf("Removed session: %s\n", sess.ID)
	default:
		fmt.Printf("Session %s has not expired; keeping it and its block. Use --force to remove.\n", sess.ID)
		return nil
	}

	blocker := network.NewBlocker(network.DefaultPaths(dir), nil, nil)
	blocker.SetSites(cfg.BlockedSites)
	if !blocker.IsBlockingActive() {
		fmt.Println("No site block to remove.")
		return nil
	}
	if err := blocker.CleanupIfNeeded(cmd.Context()); err != nil {
		return fmt.Errorf("failed to remove site block: %w", err)
	}
	fmt.Println("Site block removed.")
	return nil
}

func runUnblock(cmd *cobra.Command, args []string) error {
	dir, err := configDir()
	if err != nil {
		return err
	}

	blocker := network.NewBlocker(network.DefaultPaths(dir), nil, nil)
	if err := blocker.Unblock(cmd.Context()); err != nil {
		return fmt.Errorf("failed to unblock: %w", err)
	}
	fmt.Println("Site blocking removed.")
	return nil
}
