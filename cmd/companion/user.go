package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
	}
	cmd.AddCommand(newUserAddCommand(configPath))
	return cmd
}

func newUserAddCommand(configPath *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user and print its bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.users.CreateUser(ctx, name, a.clock.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Created user %q (id %d)\n", u.Username, u.ID)
			fmt.Printf("Token: %s\n", u.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Username")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
