// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taibuivan/talehub/internal/platform/database/schema"
	"github.com/taibuivan/talehub/internal/platform/dberr"
	"github.com/taibuivan/talehub/internal/platform/sqlite"
)

// SQLiteRepository implements [Repository] on database/sql.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository constructs a SQLite backed account store.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// FindByID retrieves a user record from the useraccount table.
func (repository *SQLiteRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`,
		schema.List(schema.UserAccount.Columns()), schema.UserAccount.Table, schema.UserAccount.ID)

	var (
		user      User
		createdAt string
	)
	err := repository.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Role,
		&createdAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "Account", "sqlite: find account")
	}

	if user.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new account row.
func (repository *SQLiteRepository) Create(ctx context.Context, user *User) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?)`,
		schema.UserAccount.Table, schema.List(schema.UserAccount.Columns()))

	_, err := repository.db.ExecContext(ctx, query,
		user.ID, user.Username, user.DisplayName, string(user.Role), sqlite.FormatTime(user.CreatedAt))
	return dberr.Wrap(err, "Account", "sqlite: insert account")
}
