package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show workflow statistics",
}

var analyticsPhasesCmd = &cobra.Command{
	Use:   "phases",
	Short: "Show per-phase timing statistics across all runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := rt.db.PhaseStats()
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No phase timings recorded yet.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-10s %-6s %-10s %-12s %s\n", "PHASE", "RUNS", "SUCCESS", "AVG", "MAX")
		fmt.Fprintf(w, "%-10s %-6s %-10s %-12s %s\n",
			strings.Repeat("-", 10),
			strings.Repeat("-", 6),
			strings.Repeat("-", 10),
			strings.Repeat("-", 12),
			strings.Repeat("-", 12))
		for _, s := range stats {
			rate := 0.0
			if s.Runs > 0 {
				rate = float64(s.Successes) / float64(s.Runs) * 100
			}
			fmt.Fprintf(w, "%-10s %-6d %-9.1f%% %-12s %s\n",
				s.Phase, s.Runs, rate, s.AvgDuration.Round(time.Millisecond), s.MaxDuration.Round(time.Millisecond))
		}
		return nil
	},
}

var analyticsQACmd = &cobra.Command{
	Use:   "qa",
	Short: "Show recent QA outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := rt.db.RecentQARuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No QA runs recorded yet.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-18s %-16s %-7s %-7s %-8s %-8s %s\n", "RUN", "OVERALL", "PASS", "FAIL", "FPS", "LOAD", "WHEN")
		for _, q := range runs {
			fmt.Fprintf(w, "%-18s %-16s %-7d %-7d %-8.1f %-7dms %s\n",
				q.RunID, q.Overall, q.Passed, q.Failed, q.AvgFPS, q.LoadMs, q.Timestamp)
		}
		return nil
	},
}

var analyticsHistoryCmd = &cobra.Command{
	Use:   "history <run-id>",
	Short: "Show the event history of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		events, err := rt.db.RunHistory(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events recorded for this run.")
			return nil
		}

		w := cmd.OutOrStdout()
		for _, e := range events {
			fmt.Fprintf(w, "%s  %-12s %-10s %s\n", e.Timestamp, e.Event, e.Phase, e.Detail)
		}
		return nil
	},
}

func init() {
	analyticsCmd.AddCommand(analyticsPhasesCmd)
	analyticsCmd.AddCommand(analyticsQACmd)
	analyticsCmd.AddCommand(analyticsHistoryCmd)

	analyticsQACmd.Flags().Int("limit", 10, "Number of recent QA runs to show")
}
