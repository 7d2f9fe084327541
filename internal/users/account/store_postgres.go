// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/talehub/internal/platform/database/schema"
	"github.com/taibuivan/talehub/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed account store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindByID retrieves a user record from the useraccount table.
func (repository *PostgresRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.List(schema.UserAccount.Columns()), schema.UserAccount.Table, schema.UserAccount.ID)

	user := &User{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "Account", "postgres: find account")
	}

	return user, nil
}

// Create inserts a new account row.
func (repository *PostgresRepository) Create(ctx context.Context, user *User) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)`,
		schema.UserAccount.Table, schema.List(schema.UserAccount.Columns()))

	_, err := repository.pool.Exec(ctx, query, user.ID, user.Username, user.DisplayName, user.Role, user.CreatedAt)
	return dberr.Wrap(err, "Account", "postgres: insert account")
}
