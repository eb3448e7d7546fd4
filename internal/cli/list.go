package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all workflow runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		states, err := rt.store.List()
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd, states)
		}

		if len(states) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-18s %-10s %-24s %s\n", "RUN", "PHASE", "UPDATED", "PROMPT")
		fmt.Fprintf(w, "%-18s %-10s %-24s %s\n",
			strings.Repeat("-", 18),
			strings.Repeat("-", 10),
			strings.Repeat("-", 24),
			strings.Repeat("-", 6))
		for _, st := range states {
			prompt := st.Prompt
			if len(prompt) > 50 {
				prompt = prompt[:47] + "..."
			}
			fmt.Fprintf(w, "%-18s %-10s %-24s %s\n", st.ID, st.Phase, st.UpdatedAt, prompt)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("json", false, "Output runs as JSON")
}
