/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/riosinforma/apiserver/config"
	"github.com/riosinforma/apiserver/internal/logging"
	"github.com/riosinforma/apiserver/internal/seed"
	"github.com/riosinforma/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var (
	seedAdminName     string
	seedAdminEmail    string
	seedAdminPassword string
)

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load default data",
}

var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create the administrator account if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		users, conn, err := openUserService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		seeder := seed.New(users, store.NewArticleRepository(conn), logging.New(cfg))
		admin, err := seeder.Admin(cmd.Context(), seedAdminName, seedAdminEmail, seedAdminPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin: %s <%s> (id %d)\n", admin.Name, admin.Email, admin.ID)
		return nil
	},
}

var seedNewsCmd = &cobra.Command{
	Use:   "news",
	Short: "Create sample articles when none exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		users, conn, err := openUserService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		seeder := seed.New(users, store.NewArticleRepository(conn), logging.New(cfg))
		created, err := seeder.News(cmd.Context(), seedAdminEmail)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d sample articles created\n", created)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedAdminCmd, seedNewsCmd)

	seedCmd.PersistentFlags().StringVar(&seedAdminEmail, "email", seed.AdminEmail, "Administrator email")
	seedAdminCmd.Flags().StringVar(&seedAdminName, "name", seed.AdminName, "Administrator display name")
	seedAdminCmd.Flags().StringVar(&seedAdminPassword, "password", seed.AdminPassword, "Administrator password")
}
