package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowmanager"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flowmanager",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowmanager version %s\n", strings.TrimSpace(flowmanager.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
