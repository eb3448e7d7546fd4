package cli

import (
	"fmt"

	"github.com/PSthelyBlog/gamesmith/internal/workflow"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume an interrupted workflow run",
	Long: `Resume picks a checkpointed run back up from the phase it stopped in.
A run that ended in the failed phase is restarted from the beginning.

With --latest the most recently updated run is resumed instead of a
named one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		latest, _ := cmd.Flags().GetBool("latest")
		if len(args) == 0 && !latest {
			return fmt.Errorf("provide a run id or --latest")
		}

		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		orch := rt.newOrchestrator()

		var st *workflow.State
		if latest {
			st, err = orch.ResumeLatest(cmd.Context())
			if err == nil && st == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs to resume.")
				return nil
			}
		} else {
			st, err = orch.Resume(cmd.Context(), args[0])
		}
		if st != nil {
			printRunResult(cmd, st)
		}
		return err
	},
}

func init() {
	resumeCmd.Flags().Bool("latest", false, "Resume the most recently updated run")
}
