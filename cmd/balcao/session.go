package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/balcao/internal/config"
	"github.com/aretw0/balcao/pkg/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation sessions",
	Long:  `List, inspect, and remove conversation sessions from the hybrid store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	Run: func(cmd *cobra.Command, args []string) {
		withSessions(cmd, func(sessions *session.Manager) error {
			stats := sessions.GetStats(cmd.Context())
			if stats.TotalSessions == 0 {
				fmt.Println("No active sessions found.")
				return nil
			}

			fmt.Printf("Active sessions: %d\n", stats.TotalSessions)
			for state, n := range stats.SessionsByState {
				fmt.Printf("- %s: %d\n", state, n)
			}
			return nil
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <phone>",
	Short: "Inspect the state of a conversation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withSessions(cmd, func(sessions *session.Manager) error {
			s, err := sessions.Peek(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading session %q: %w", args[0], err)
			}

			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling session: %w", err)
			}
			fmt.Println(string(data))
			return nil
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <phone>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withSessions(cmd, func(sessions *session.Manager) error {
			hasError := false
			for _, phone := range args {
				if err := sessions.Delete(cmd.Context(), phone); err != nil {
					fmt.Printf("Error removing %q: %v\n", phone, err)
					hasError = true
				} else {
					fmt.Printf("Removed session %q\n", phone)
				}
			}
			if hasError {
				return fmt.Errorf("some sessions could not be removed")
			}
			return nil
		})
	},
}

// withSessions builds the session manager from configuration, runs fn
// and exits non-zero on failure.
func withSessions(cmd *cobra.Command, fn func(*session.Manager) error) {
	cfg := config.Load()
	engine, cleanup, err := buildEngine(cmd.Context(), cfg, nil)
	if err != nil {
		fmt.Printf("Error initializing balcao: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := fn(engine.Sessions()); err != nil {
		fmt.Printf("Error: %v\n", err)
		cleanup()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}
