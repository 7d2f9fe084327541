// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/database/schema"
	"github.com/taibuivan/talehub/internal/platform/dberr"
	"github.com/taibuivan/talehub/internal/platform/postgres"
)

// # PostgreSQL Repository

// postgresRepository implements [Repository] using pgx.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed story store.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

var pgSelectStory = fmt.Sprintf(`SELECT %s FROM %s`, schema.List(schema.Story.Columns()), schema.Story.Table)

func scanPgStory(row pgx.Row) (*Story, error) {
	var story Story
	err := row.Scan(
		&story.ID, &story.AuthorID, &story.Title, &story.Slug, &story.Description, &story.Status,
		&story.LikeCount, &story.ReadCount, &story.RatingAvg,
		&story.CreatedAt, &story.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	story.derive()
	return &story, nil
}

func (repository *postgresRepository) Create(ctx context.Context, story *Story) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		schema.Story.Table, schema.List(schema.Story.Columns()))

	_, err := repository.pool.Exec(ctx, query,
		story.ID, story.AuthorID, story.Title, story.Slug, story.Description, story.Status,
		story.LikeCount, story.ReadCount, story.RatingAvg,
		story.CreatedAt, story.UpdatedAt,
	)
	if dberr.IsForeignKeyViolation(err) {
		return apperr.NotFound("Author")
	}
	return dberr.Wrap(err, "Story", "postgres: insert story")
}

func (repository *postgresRepository) FindByID(ctx context.Context, id string) (*Story, error) {
	query := pgSelectStory + fmt.Sprintf(` WHERE %s = $1`, schema.Story.ID)

	story, err := scanPgStory(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Story", "postgres: find story")
	}
	return story, nil
}

func (repository *postgresRepository) ListByAuthor(ctx context.Context, authorID string) ([]*Story, error) {
	query := pgSelectStory + fmt.Sprintf(` WHERE %s = $1 ORDER BY %s DESC, %s`,
		schema.Story.AuthorID, schema.Story.CreatedAt, schema.Story.ID)

	rows, err := repository.pool.Query(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stories by author: %w", err)
	}
	defer rows.Close()

	stories := []*Story{}
	for rows.Next() {
		story, err := scanPgStory(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate stories: %w", err)
	}
	return stories, nil
}

func (repository *postgresRepository) ListIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s, %s`,
		schema.Story.ID, schema.Story.Table, schema.Story.CreatedAt, schema.Story.ID)

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list story ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan story ids: %w", err)
	}
	return ids, nil
}

/*
Delete removes a story and everything it owns.

Description: The story row is locked first so chapter writers queued on the
same story wait and then observe it as gone. Read records go before chapters
so no SET NULL updates are triggered for rows that are about to disappear.
*/
func (repository *postgresRepository) Delete(ctx context.Context, id string) error {
	return postgres.InTx(ctx, repository.pool, func(tx pgx.Tx) error {
		lock := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`,
			schema.Story.ID, schema.Story.Table, schema.Story.ID)

		var lockedID string
		if err := tx.QueryRow(ctx, lock, id).Scan(&lockedID); err != nil {
			return dberr.Wrap(err, "Story", "postgres: lock story")
		}

		statements := []string{
			fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.ReadRecord.Table, schema.ReadRecord.StoryID),
			fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Chapter.Table, schema.Chapter.StoryID),
			fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Story.Table, schema.Story.ID),
		}

		for _, statement := range statements {
			if _, err := tx.Exec(ctx, statement, id); err != nil {
				return fmt.Errorf("postgres: delete story %s: %w", id, err)
			}
		}
		return nil
	})
}
