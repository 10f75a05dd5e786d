package main

import (
	"fmt"
	"os"

	"github.com/aretw0/balcao/internal/config"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show session counts by conversation state",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		engine, cleanup, err := buildEngine(cmd.Context(), cfg, nil)
		if err != nil {
			fmt.Printf("Error initializing balcao: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		stats := engine.SessionStats(cmd.Context())
		fmt.Printf("Total sessions: %d\n", stats.TotalSessions)
		for state, n := range stats.SessionsByState {
			fmt.Printf("- %s: %d\n", state, n)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
