package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/focusops/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "focusops %s\n", server.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
