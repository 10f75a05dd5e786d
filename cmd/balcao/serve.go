package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/balcao/internal/config"
	httpadapter "github.com/aretw0/balcao/pkg/adapters/http"
	"github.com/aretw0/balcao/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the ordering assistant in server mode, exposing the message, signal and session APIs over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cmd.Flags().Changed("port") {
			cfg.HTTPPort, _ = cmd.Flags().GetString("port")
		}

		metrics := observability.New(prometheus.DefaultRegisterer)
		engine, cleanup, err := buildEngine(cmd.Context(), cfg, metrics)
		if err != nil {
			fmt.Printf("Error initializing balcao: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		srv := &http.Server{
			Addr:    ":" + cfg.HTTPPort,
			Handler: httpadapter.NewHandler(engine),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Balcao Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Periodically reconcile cached sessions into the durable tier,
		// so sessions written during a database outage are not lost.
		syncDone := make(chan struct{})
		go func() {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-syncDone:
					return
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					n, err := engine.Sessions().SyncActiveToDurable(ctx)
					cancel()
					if err != nil {
						fmt.Printf("Session sync error: %v\n", err)
					} else if n > 0 {
						fmt.Printf("Synced %d session(s) to durable storage\n", n)
					}
					metrics.SetActiveSessions(engine.Sessions().CountActive(context.Background()))
				}
			}
		}()
		defer close(syncDone)

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Balcao Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides HTTP_PORT)")
}
