// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/platform/validate"
	"github.com/taibuivan/talehub/pkg/slice"
)

const (
	FieldID          = "id"
	FieldUsername    = "username"
	FieldDisplayName = "display_name"
	FieldRole        = "role"
)

// Service orchestrates account lookups and provisioning.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new account [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetUser returns the account or apperr.NotFound.
func (service *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return service.repo.FindByID(ctx, userID)
}

// ProvisionInput mirrors the identity fields pushed by the identity service.
type ProvisionInput struct {
	ID          string
	Username    string
	DisplayName string
	Role        sec.UserRole
}

/*
Provision creates the local account for an identity issued elsewhere.

Description: The ID is the identity service's user ID, so tokens minted for
the user resolve to this row without a mapping table.

Returns:
  - *User: The stored account
  - error: Validation errors, apperr.DuplicateKey when already provisioned
*/
func (service *Service) Provision(ctx context.Context, input ProvisionInput) (*User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Role == "" {
		input.Role = sec.RoleMember
	}
	if input.DisplayName == "" {
		input.DisplayName = input.Username
	}

	validator := &validate.Validator{}
	validator.UUID(FieldID, input.ID)
	validator.Required(FieldUsername, input.Username).MaxLen(FieldUsername, input.Username, 64)
	validator.MaxLen(FieldDisplayName, input.DisplayName, 128)
	validator.OneOf(FieldRole, string(input.Role),
		slice.Strings(sec.Roles)...)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	user := &User{
		ID:          input.ID,
		Username:    input.Username,
		DisplayName: input.DisplayName,
		Role:        input.Role,
		CreatedAt:   time.Now().UTC(),
	}

	if err := service.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "account_provisioned",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}
