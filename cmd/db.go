/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riosinforma/apiserver/config"
	"github.com/riosinforma/apiserver/internal/auth"
	"github.com/riosinforma/apiserver/internal/cache"
	"github.com/riosinforma/apiserver/internal/db"
	"github.com/riosinforma/apiserver/internal/services"
	"github.com/riosinforma/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// dbCmd represents the db command.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database diagnostics",
}

var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to the database and, when configured, Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		conn, driver, err := db.Open(ctx, cfg.DatabaseURL())
		if err != nil {
			return err
		}
		defer conn.Close()

		users, err := store.NewUserRepository(conn).List(ctx)
		if err != nil {
			return fmt.Errorf("query users: %w", err)
		}
		articles, err := store.NewArticleRepository(conn).Count(ctx)
		if err != nil {
			return fmt.Errorf("count articles: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database ok (%s): %d users, %d articles\n", driver, len(users), articles)

		redisClient := cache.New(cfg.Redis)
		defer redisClient.Close()
		if !redisClient.Enabled() {
			fmt.Fprintln(cmd.OutOrStdout(), "redis not configured")
			return nil
		}
		if err := redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "redis ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbPingCmd)
}

// openUserService connects to the configured database for operator commands.
// The caller closes the returned connection.
func openUserService(ctx context.Context, cfg config.Config) (*services.UserService, *sql.DB, error) {
	conn, _, err := db.Open(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, nil, err
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	return services.NewUserService(store.NewUserRepository(conn), hasher), conn, nil
}
