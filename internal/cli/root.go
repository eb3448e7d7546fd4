package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gamesmith",
	Short: "gamesmith is an automated game development pipeline",
	Long: `gamesmith drives a coding agent through a design/build/qa/publish
workflow to produce small browser games from a single prompt.

Each run is checkpointed to a JSON state file so interrupted workflows can
be resumed from the last completed phase. QA runs the game in a headless
browser and feeds failures back into a rework build pass.

State lives in ~/.gamesmith/ (SQLite for telemetry, JSON for run state).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./gamesmith.yaml, then ~/.gamesmith/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(qaCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(analyticsCmd)
}
