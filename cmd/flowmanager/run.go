package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowmanager/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run [flow.yaml]",
	Short: "Run a flow",
	Long: `Runs a flow file. Pauses raised by prompt nodes are answered from stdin,
or through the HTTP API when --http is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runConfig(cmd, args)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Stop()

		err = cli.Run(ctx, cfg, cli.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
		return ctx.Interrupted(err)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

func addRunFlags(f *pflag.FlagSet) {
	f.String("config", "", "YAML config file; flags override its values")
	f.String("state", "", "YAML or JSON file with the initial state")
	f.String("input", "", "Input of the first node (JSON, or a plain string)")
	f.String("instance", "", "Flow instance id (default: random UUID)")
	f.String("redis", "", "Redis address for snapshots and locks (default: in memory)")
	f.String("http", "", "Address of the pause/resume HTTP API, e.g. :8080")
	f.Bool("json", false, "Print pauses and the result as JSON lines")
}

// runConfig layers flags over the optional config file.
func runConfig(cmd *cobra.Command, args []string) (cli.Config, error) {
	var cfg cli.Config
	f := cmd.Flags()

	if path, _ := f.GetString("config"); path != "" {
		loaded, err := cli.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Flow = args[0]
	}
	if cfg.Flow == "" {
		return cfg, fmt.Errorf("no flow file given")
	}

	if f.Changed("state") {
		cfg.StateFile, _ = f.GetString("state")
	}
	if f.Changed("input") {
		raw, _ := f.GetString("input")
		cfg.Input = cli.ParseInput(raw)
	}
	if f.Changed("instance") {
		cfg.Instance, _ = f.GetString("instance")
	}
	if f.Changed("redis") {
		cfg.Redis.Addr, _ = f.GetString("redis")
	}
	if f.Changed("http") {
		cfg.HTTPAddr, _ = f.GetString("http")
	}
	if f.Changed("json") {
		cfg.JSON, _ = f.GetBool("json")
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}
