/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riosinforma/apiserver/config"
	"github.com/riosinforma/apiserver/internal/db"
	"github.com/riosinforma/apiserver/internal/logging"
	"github.com/riosinforma/apiserver/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverMigrate         bool
	serverShutdownTimeout time.Duration
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the news portal API server",
	Long: `Starts the news portal API server. Usage:

	noticias server
	noticias server --migrate
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		log := logging.New(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serverMigrate {
			if err := db.MigrateUp(ctx, cfg.DatabaseURL()); err != nil {
				fmt.Fprintf(os.Stderr, "failed to migrate database: %v\n", err)
				os.Exit(1)
			}
			log.Info("database migrated")
		}

		srv, err := server.New(ctx, cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "server error: %v\n", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().BoolVar(&serverMigrate, "migrate", false, "Apply pending migrations before serving")
	serverCmd.Flags().DurationVar(&serverShutdownTimeout, "shutdown-timeout", 15*time.Second, "Time allowed for in-flight requests to finish")
}
