package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/balcao"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of balcao",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("balcao version %s\n", strings.TrimSpace(balcao.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
