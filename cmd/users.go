/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/riosinforma/apiserver/config"
	"github.com/riosinforma/apiserver/types"
	"github.com/spf13/cobra"
)

var usersPromoteRole string

// usersCmd represents the users command.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		users, conn, err := openUserService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		all, err := users.List(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tCREATED")
		for _, u := range all {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var usersPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Change the role of a user (admin by default)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		users, conn, err := openUserService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		user, err := users.SetRole(cmd.Context(), args[0], usersPromoteRole)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete a user and every article they authored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		users, conn, err := openUserService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := users.DeleteByEmail(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd, usersPromoteCmd, usersDeleteCmd)

	usersPromoteCmd.Flags().StringVar(&usersPromoteRole, "role", types.RoleAdmin, "Role to assign (admin or user)")
}
