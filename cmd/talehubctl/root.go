// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		driverFlag   string
		databaseFlag string
		verboseFlag  bool
	)

	ctx := newCommandContext(&driverFlag, &databaseFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:           "talehubctl",
		Short:         "Talehub operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Parent() == nil || cmd.Name() == "help" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver, postgres or sqlite (overrides DATABASE_DRIVER)")
	rootCmd.PersistentFlags().StringVarP(&databaseFlag, "database", "d", "", "Database DSN or SQLite path (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log at debug level to stderr")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newOrdinalsCommand(ctx))
	rootCmd.AddCommand(newUsersCommand(ctx))

	return rootCmd
}
