package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/focuslock/focuslock/internal/network"
	"github.com/focuslock/focuslock/internal/process"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List what a session blocks",
	Long: `List the blocked domains (with their www. siblings) and the blocked
apps from the config file, with the executable each app resolves to.`,
	Args: cobra.NoArgs,
	RunE: runSites,
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}

func runSites(cmd *cobra.Command, args []string) error {
	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOMAIN\tBLOCKED NOW")
	_, _ = fmt.Fprintln(w, "------\t-----------")

	active := network.NewBlocker(network.DefaultPaths(dir), nil, nil).IsBlockingActive()
	for _, domain := range network.Domains(cfg.BlockedSites) {
		_, _ = fmt.Fprintf(w, "%s\t%t\n", domain, active)
	}
	_ = w.Flush()
	fmt.Println()

	if len(cfg.BlockedApps) == 0 {
		fmt.Println("No blocked apps.")
		return nil
	}

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "APP\tMATCHES")
	_, _ = fmt.Fprintln(w, "---\t-------")
	for _, entry := range process.Entries(cfg.BlockedApps, process.DefaultBundleResolver()) {
		_, _ = fmt.Fprintf(w, "%s\t%v\n", entry.Name, entry.Candidates)
	}
	_ = w.Flush()
	return nil
}
