// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/database/schema"
	"github.com/taibuivan/talehub/internal/platform/dberr"
	"github.com/taibuivan/talehub/internal/platform/sqlite"
)

// # SQLite Repository

// sqliteRepository implements [Repository] on database/sql.
type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository constructs a SQLite backed story store.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

var liteSelectStory = fmt.Sprintf(`SELECT %s FROM %s`, schema.List(schema.Story.Columns()), schema.Story.Table)

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanLiteStory(row sqlScanner) (*Story, error) {
	var (
		story                Story
		createdAt, updatedAt string
	)
	err := row.Scan(
		&story.ID, &story.AuthorID, &story.Title, &story.Slug, &story.Description, &story.Status,
		&story.LikeCount, &story.ReadCount, &story.RatingAvg,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if story.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if story.UpdatedAt, err = sqlite.ParseTime(updatedAt); err != nil {
		return nil, err
	}

	story.derive()
	return &story, nil
}

func (repository *sqliteRepository) Create(ctx context.Context, story *Story) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schema.Story.Table, schema.List(schema.Story.Columns()))

	_, err := repository.db.ExecContext(ctx, query,
		story.ID, story.AuthorID, story.Title, story.Slug, story.Description, string(story.Status),
		story.LikeCount, story.ReadCount, story.RatingAvg,
		sqlite.FormatTime(story.CreatedAt), sqlite.FormatTime(story.UpdatedAt),
	)
	if dberr.IsForeignKeyViolation(err) {
		return apperr.NotFound("Author")
	}
	return dberr.Wrap(err, "Story", "sqlite: insert story")
}

func (repository *sqliteRepository) FindByID(ctx context.Context, id string) (*Story, error) {
	query := liteSelectStory + fmt.Sprintf(` WHERE %s = ?`, schema.Story.ID)

	story, err := scanLiteStory(repository.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Story", "sqlite: find story")
	}
	return story, nil
}

func (repository *sqliteRepository) ListByAuthor(ctx context.Context, authorID string) ([]*Story, error) {
	query := liteSelectStory + fmt.Sprintf(` WHERE %s = ? ORDER BY %s DESC, %s`,
		schema.Story.AuthorID, schema.Story.CreatedAt, schema.Story.ID)

	rows, err := repository.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list stories by author: %w", err)
	}
	defer rows.Close()

	stories := []*Story{}
	for rows.Next() {
		story, err := scanLiteStory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate stories: %w", err)
	}
	return stories, nil
}

func (repository *sqliteRepository) ListIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s, %s`,
		schema.Story.ID, schema.Story.Table, schema.Story.CreatedAt, schema.Story.ID)

	rows, err := repository.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list story ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan story id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes read records, then chapters, then the story row.
func (repository *sqliteRepository) Delete(ctx context.Context, id string) error {
	return sqlite.InTx(ctx, repository.db, func(tx *sql.Tx) error {
		statements := []string{
			fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, schema.ReadRecord.Table, schema.ReadRecord.StoryID),
			fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, schema.Chapter.Table, schema.Chapter.StoryID),
			fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, schema.Story.Table, schema.Story.ID),
		}

		var result sql.Result
		for _, statement := range statements {
			var err error
			if result, err = tx.ExecContext(ctx, statement, id); err != nil {
				return fmt.Errorf("sqlite: delete story %s: %w", id, err)
			}
		}

		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: delete story %s: rows affected: %w", id, err)
		}
		if removed == 0 {
			return apperr.NotFound("Story")
		}
		return nil
	})
}
