package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowmanager/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow.yaml>",
	Short: "Check a flow for unresolved references and unsupported nodes",
	Long:  `Walks every node, branch arm, subflow and loop body and reports what would produce an error output at run time.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Validate(args[0], os.Stdout); err != nil {
			return err
		}
		fmt.Println("Flow is valid!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
