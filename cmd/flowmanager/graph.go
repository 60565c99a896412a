package main

import (
	"os"

	"github.com/aretw0/flowmanager/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <flow.yaml>",
	Short: "Print a Mermaid diagram of a flow",
	Long:  `Prints a Mermaid flowchart. With --run and --redis, the progress of a stored run is highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		addr, _ := cmd.Flags().GetString("redis")
		prefix, _ := cmd.Flags().GetString("redis-prefix")

		if runID == "" || addr == "" {
			return cli.Graph(cmd.Context(), args[0], nil, "", os.Stdout)
		}

		store, closeStore, err := cli.OpenSnapshots(cmd.Context(), cli.Config{
			Redis: cli.RedisConfig{Addr: addr, Prefix: prefix},
		})
		if err != nil {
			return err
		}
		defer closeStore()
		return cli.Graph(cmd.Context(), args[0], store, runID, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Flow instance id whose progress is highlighted")
	graphCmd.Flags().String("redis", "", "Redis address holding run snapshots")
	graphCmd.Flags().String("redis-prefix", "", "Redis key prefix of run snapshots")
}
