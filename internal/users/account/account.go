// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account holds the local copy of user identities.

Accounts are owned by the external identity service; this package only
provisions the rows that reading records reference and answers lookups.

# Architecture

  - Entities: User.
  - Domain: Reading records require the user to exist here.
  - Security: Roles mirror the claims carried in access tokens.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/talehub/internal/platform/sec"
)

// # Domain Entities

// User is a reader or author known to Talehub.
type User struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	DisplayName string       `json:"display_name"`
	Role        sec.UserRole `json:"role"`
	CreatedAt   time.Time    `json:"created_at"`
}

// # Repository Contracts

// Repository defines the persistence contract for user accounts.
type Repository interface {
	/*
		FindByID retrieves a user record by their unique ID.

		Returns:
		  - *User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(ctx context.Context, id string) (*User, error)

	/*
		Create inserts a new account.

		Returns:
		  - error: apperr.DuplicateKey when the ID or username is taken
	*/
	Create(ctx context.Context, user *User) error
}
