package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old run state files",
	Long: `Cleanup removes all but the N most recently updated runs. The default
for N comes from workflow.keep_runs in the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		keep, _ := cmd.Flags().GetInt("keep")
		if keep <= 0 {
			keep = rt.cfg.Workflow.KeepRuns
		}

		removed, err := rt.store.CleanupOld(keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s), kept the %d most recent.\n", removed, keep)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Int("keep", 0, "Number of runs to keep (default: workflow.keep_runs)")
}
