/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/riosinforma/apiserver/config"
	"github.com/riosinforma/apiserver/internal/auth"
	"github.com/spf13/cobra"
)

// hashPasswordCmd prints a bcrypt digest suitable for the users table.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt hash of a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		digest, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost).Hash(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), digest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
