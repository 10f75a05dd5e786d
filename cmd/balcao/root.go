package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "balcao",
	Short: "Balcao is a text-driven ordering assistant",
	Long:  `Balcao turns chat messages into orders: it parses intents, walks a guarded conversation flow and keeps sessions in a hybrid Redis/SQLite store.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
