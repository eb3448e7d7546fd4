package cli

import (
	"fmt"

	"github.com/PSthelyBlog/gamesmith/internal/workflow"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <prompt>",
	Short: "Start a new game workflow from a prompt",
	Long: `Start creates a new run and drives it through every phase until it
completes, fails, or stops at an approval gate rejection.

The prompt describes the game to build, e.g.:

  gamesmith start "a breakout clone with power-ups and three levels"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		engine, _ := cmd.Flags().GetString("engine")
		if engine == "" {
			engine = rt.cfg.Workflow.Game.Engine
		}
		runID, _ := cmd.Flags().GetString("id")

		orch := rt.newOrchestrator()

		var st *workflow.State
		if runID != "" {
			st, err = orch.StartWithID(cmd.Context(), runID, args[0], engine)
		} else {
			st, err = orch.Start(cmd.Context(), args[0], engine)
		}
		if st != nil {
			printRunResult(cmd, st)
		}
		return err
	},
}

func init() {
	startCmd.Flags().String("engine", "", "Game engine/framework to target (overrides config)")
	startCmd.Flags().String("id", "", "Explicit run identifier (default: timestamp)")
}

func printRunResult(cmd *cobra.Command, st *workflow.State) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s finished in phase %s\n", st.ID, colorPhase(st.Phase))
	for _, e := range st.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
}
