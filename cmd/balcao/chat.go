package main

import (
	"fmt"
	"os"

	"github.com/aretw0/balcao"
	"github.com/aretw0/balcao/internal/config"
	"github.com/spf13/cobra"
)

// chatCmd drives a conversation from the terminal, one line per
// message. Useful for trying the flow without a chat transport.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant from the terminal",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		phone, _ := cmd.Flags().GetString("phone")

		engine, cleanup, err := buildEngine(cmd.Context(), cfg, nil)
		if err != nil {
			fmt.Printf("Error initializing balcao: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		fmt.Println("--- Balcao Chat (type 'exit' to quit) ---")
		runner := &balcao.Runner{Input: os.Stdin, Output: os.Stdout, Phone: phone}
		if err := runner.Run(cmd.Context(), engine); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("phone", "console", "Phone number identifying the conversation")
}
