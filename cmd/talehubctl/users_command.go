// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taibuivan/talehub/internal/app"
	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/users/account"
	"github.com/taibuivan/talehub/pkg/slice"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage locally provisioned accounts",
	}

	usersCmd.AddCommand(newUsersProvisionCommand(ctx))

	return usersCmd
}

func newUsersProvisionCommand(ctx *commandContext) *cobra.Command {
	var input account.ProvisionInput
	var role string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the local account for an identity-service user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Role = sec.UserRole(role)
			return ctx.withServices(cmd.Context(), func(services *app.Services) error {
				user, err := services.Accounts.Provision(cmd.Context(), input)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Username", "Role"},
					[][]string{{user.ID, user.Username, string(user.Role)}},
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&input.ID, "id", "", "User ID issued by the identity service")
	cmd.Flags().StringVar(&input.Username, "username", "", "Unique username")
	cmd.Flags().StringVar(&input.DisplayName, "display-name", "", "Display name (defaults to username)")
	cmd.Flags().StringVar(&role, "role", string(sec.RoleMember), strings.Join(slice.Strings(sec.Roles), ", "))
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
