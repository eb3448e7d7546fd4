package cli

import (
	"fmt"

	"github.com/PSthelyBlog/gamesmith/internal/workflow"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Cancel a run, marking it failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		st, err := rt.store.Load(args[0])
		if err != nil {
			return err
		}
		if workflow.IsTerminal(st.Phase) {
			return fmt.Errorf("run %s is already in terminal phase %s", st.ID, st.Phase)
		}

		if err := st.TransitionTo(workflow.PhaseFailed); err != nil {
			return err
		}
		st.AddError("cancelled by user")
		if _, err := rt.store.Save(st); err != nil {
			return err
		}
		_ = rt.db.LogRunEvent(st.ID, "cancelled", string(workflow.PhaseFailed), "")

		fmt.Fprintf(cmd.OutOrStdout(), "Run %s cancelled.\n", st.ID)
		return nil
	},
}
