package main

import (
	"fmt"
	"os"

	"github.com/aretw0/balcao/internal/config"
	"github.com/spf13/cobra"
)

// syncCmd runs one reconciliation sweep: every live cached session is
// upserted into the durable store.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync cached sessions to durable storage",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		engine, cleanup, err := buildEngine(cmd.Context(), cfg, nil)
		if err != nil {
			fmt.Printf("Error initializing balcao: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		n, err := engine.Sessions().SyncActiveToDurable(cmd.Context())
		if err != nil {
			fmt.Printf("Sync error: %v\n", err)
			cleanup()
			os.Exit(1)
		}
		fmt.Printf("Synced %d session(s)\n", n)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
