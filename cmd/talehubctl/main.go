// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command talehubctl is the operator CLI for a Talehub database.
//
// It talks to the database directly, using the same configuration variables
// as the API server, and is safe to run while the server is up.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
