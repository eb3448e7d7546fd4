package cli

import (
	"fmt"
	"strings"

	"github.com/PSthelyBlog/gamesmith/internal/workflow"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the state of a run",
	Long: `Status prints the current phase, artifacts, and history of a run.
Without an argument it shows the most recently updated run.

With --watch the display refreshes whenever the run's state file changes,
which is useful while a workflow is executing in another terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		var st *workflow.State
		if len(args) == 1 {
			st, err = rt.store.Load(args[0])
		} else {
			st, err = rt.store.Latest()
			if err == nil && st == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
				return nil
			}
		}
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd, st)
		}

		printState(cmd, st)

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return watchRun(cmd, rt, st.ID)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "Output raw state as JSON")
	statusCmd.Flags().Bool("watch", false, "Refresh when the run's state file changes")
}

// watchRun re-renders the run every time its state file is written.
func watchRun(cmd *cobra.Command, rt *runtime, id string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(rt.store.BaseDir()); err != nil {
		return fmt.Errorf("watch state dir: %w", err)
	}

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, id+".json") {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			st, err := rt.store.Load(id)
			if err != nil {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout())
			printState(cmd, st)
			if workflow.IsTerminal(st.Phase) {
				return nil
			}
		}
	}
}

func printState(cmd *cobra.Command, st *workflow.State) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s\n", color.New(color.Bold).Sprint(st.ID))
	fmt.Fprintf(w, "  Phase:   %s\n", colorPhase(st.Phase))
	fmt.Fprintf(w, "  Engine:  %s\n", st.Engine)
	fmt.Fprintf(w, "  Prompt:  %s\n", st.Prompt)
	fmt.Fprintf(w, "  Created: %s\n", st.CreatedAt)
	fmt.Fprintf(w, "  Updated: %s\n", st.UpdatedAt)

	if len(st.Artifacts) > 0 {
		fmt.Fprintln(w, "  Artifacts:")
		for k, v := range st.Artifacts {
			fmt.Fprintf(w, "    %s: %s\n", k, v)
		}
	}
	if len(st.Approvals) > 0 {
		fmt.Fprintln(w, "  Approvals:")
		for k, v := range st.Approvals {
			mark := color.RedString("rejected")
			if v {
				mark = color.GreenString("approved")
			}
			fmt.Fprintf(w, "    %s: %s\n", k, mark)
		}
	}
	if len(st.Errors) > 0 {
		fmt.Fprintln(w, "  Errors:")
		for _, e := range st.Errors {
			fmt.Fprintf(w, "    %s\n", color.RedString(e))
		}
	}
	if len(st.Checkpoints) > 0 {
		fmt.Fprintln(w, "  Checkpoints:")
		for _, cp := range st.Checkpoints {
			fmt.Fprintf(w, "    %s %s (%s)\n", cp.At, cp.Phase, cp.Description)
		}
	}
}

func colorPhase(p workflow.Phase) string {
	switch p {
	case workflow.PhaseComplete:
		return color.GreenString(string(p))
	case workflow.PhaseFailed:
		return color.RedString(string(p))
	case workflow.PhaseQA:
		return color.YellowString(string(p))
	default:
		return color.CyanString(string(p))
	}
}
