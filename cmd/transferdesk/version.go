package main

import (
	"fmt"

	"github.com/aretw0/transferdesk"
	"github.com/aretw0/transferdesk/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Transferdesk",
	Run: func(cmd *cobra.Command, args []string) {
		if plain, _ := cmd.Flags().GetBool("plain"); !plain {
			tui.PrintBanner(cmd.OutOrStdout())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Transferdesk %s\n", transferdesk.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
