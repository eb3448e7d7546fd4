package cli

import (
	"fmt"
	"os"

	"github.com/PSthelyBlog/gamesmith/internal/publish"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload a game directory to itch.io",
	Long: `Publish pushes a build to itch.io with butler, outside of any workflow
run. Target and channel default to the publish section of the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime()
		if err != nil {
			return err
		}
		defer cleanup()

		p := rt.cfg.Workflow.Publish
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = rt.cfg.Workflow.Game.Dir
		}
		target, _ := cmd.Flags().GetString("target")
		if target == "" {
			target = p.Target
		}
		channel, _ := cmd.Flags().GetString("channel")
		if channel == "" {
			channel = p.Channel
		}
		if target == "" {
			return fmt.Errorf("no publish target; set --target or publish.target in config")
		}

		var api *publish.Client
		if p.APIKeyEnv != "" {
			if key := os.Getenv(p.APIKeyEnv); key != "" {
				api = publish.NewClient(key)
			}
		}

		pub := publish.NewPublisher(api, rt.log)
		if err := pub.Push(cmd.Context(), dir, target, channel); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s to %s:%s\n", dir, target, channel)
		return nil
	},
}

func init() {
	publishCmd.Flags().String("dir", "", "Directory to upload (default: game.dir)")
	publishCmd.Flags().String("target", "", "itch.io target as user/game (default: publish.target)")
	publishCmd.Flags().String("channel", "", "Release channel (default: publish.channel)")
}
