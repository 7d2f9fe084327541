// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/talehub/internal/platform/database/schema"
	"github.com/taibuivan/talehub/internal/platform/dberr"
	"github.com/taibuivan/talehub/internal/platform/postgres"
)

// # PostgreSQL Repository

// postgresRepository implements [Repository] using pgx.
//
// Per-story serialization comes from SELECT ... FOR UPDATE on the story row;
// writers of other stories never wait on each other.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed chapter store.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// pgQuerier is satisfied by both the pool and a transaction.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var pgSelectChapter = fmt.Sprintf(`SELECT %s FROM %s`, schema.List(schema.Chapter.Columns()), schema.Chapter.Table)

func scanPgChapter(row pgx.Row) (*Chapter, error) {
	var chapter Chapter
	err := row.Scan(
		&chapter.ID, &chapter.StoryID, &chapter.Title, &chapter.Content,
		&chapter.Number, &chapter.CreatedAt, &chapter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (repository *postgresRepository) ListByStory(ctx context.Context, storyID string) ([]*Chapter, error) {
	return pgListByStory(ctx, repository.pool, storyID)
}

func pgListByStory(ctx context.Context, querier pgQuerier, storyID string) ([]*Chapter, error) {
	query := fmt.Sprintf(`%s WHERE %s = $1 ORDER BY %s ASC, %s ASC`,
		pgSelectChapter, schema.Chapter.StoryID, schema.Chapter.Number, schema.Chapter.CreatedAt)

	rows, err := querier.Query(ctx, query, storyID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list chapters: %w", err)
	}
	defer rows.Close()

	chapters := []*Chapter{}
	for rows.Next() {
		chapter, err := scanPgChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate chapters: %w", err)
	}
	return chapters, nil
}

func (repository *postgresRepository) FindByID(ctx context.Context, id string) (*Chapter, error) {
	return pgFindByID(ctx, repository.pool, id)
}

func pgFindByID(ctx context.Context, querier pgQuerier, id string) (*Chapter, error) {
	query := fmt.Sprintf(`%s WHERE %s = $1`, pgSelectChapter, schema.Chapter.ID)

	chapter, err := scanPgChapter(querier.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Chapter", "postgres: find chapter")
	}
	return chapter, nil
}

func (repository *postgresRepository) FindByNumber(ctx context.Context, storyID string, number int) (*Chapter, error) {
	query := fmt.Sprintf(`%s WHERE %s = $1 AND %s = $2`, pgSelectChapter, schema.Chapter.StoryID, schema.Chapter.Number)

	chapter, err := scanPgChapter(repository.pool.QueryRow(ctx, query, storyID, number))
	if err != nil {
		return nil, dberr.Wrap(err, "Chapter", "postgres: find chapter by number")
	}
	return chapter, nil
}

/*
Append inserts the chapter at ordinal count + 1.

Description: The story row lock makes the count and the insert atomic with
respect to every other writer of the same story.
*/
func (repository *postgresRepository) Append(ctx context.Context, chapter *Chapter, now time.Time) error {
	return postgres.InTx(ctx, repository.pool, func(tx pgx.Tx) error {
		if err := pgLockStory(ctx, tx, chapter.StoryID); err != nil {
			return err
		}

		var count int
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, schema.Chapter.Table, schema.Chapter.StoryID)
		if err := tx.QueryRow(ctx, countQuery, chapter.StoryID).Scan(&count); err != nil {
			return fmt.Errorf("postgres: count chapters: %w", err)
		}

		chapter.Number = count + 1
		chapter.CreatedAt = now
		chapter.UpdatedAt = now

		insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			schema.Chapter.Table, schema.List(schema.Chapter.Columns()))

		_, err := tx.Exec(ctx, insert,
			chapter.ID, chapter.StoryID, chapter.Title, chapter.Content,
			chapter.Number, chapter.CreatedAt, chapter.UpdatedAt,
		)
		if err != nil {
			return dberr.Wrap(err, "Chapter", "postgres: insert chapter")
		}

		return pgTouchStory(ctx, tx, chapter.StoryID, now)
	})
}

func (repository *postgresRepository) Update(ctx context.Context, storyID, chapterID, title, content string, now time.Time) (*Chapter, error) {
	var updated *Chapter

	err := postgres.InTx(ctx, repository.pool, func(tx pgx.Tx) error {
		chapter, err := pgOwnedChapter(ctx, tx, storyID, chapterID)
		if err != nil {
			return err
		}

		update := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4 WHERE %s = $1`,
			schema.Chapter.Table,
			schema.Chapter.Title, schema.Chapter.Content, schema.Chapter.UpdatedAt,
			schema.Chapter.ID,
		)
		if _, err := tx.Exec(ctx, update, chapterID, title, content, now); err != nil {
			return fmt.Errorf("postgres: update chapter: %w", err)
		}

		chapter.Title = title
		chapter.Content = content
		chapter.UpdatedAt = now
		updated = chapter

		return pgTouchStory(ctx, tx, storyID, now)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

/*
Delete removes the chapter and closes the gap it leaves.

Description: Later chapters are shifted in two set-based passes. The first
negates their numbers, moving them out of the positive range; the second maps
-n to n-1. No intermediate state ever holds two rows with the same
(story, number), so the unique index is satisfied at every row write.
*/
func (repository *postgresRepository) Delete(ctx context.Context, storyID, chapterID string, now time.Time) (*Chapter, int, error) {
	var (
		removed *Chapter
		shifted int
	)

	err := postgres.InTx(ctx, repository.pool, func(tx pgx.Tx) error {
		chapter, err := pgOwnedChapter(ctx, tx, storyID, chapterID)
		if err != nil {
			return err
		}

		remove := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Chapter.Table, schema.Chapter.ID)
		if _, err := tx.Exec(ctx, remove, chapterID); err != nil {
			return fmt.Errorf("postgres: delete chapter: %w", err)
		}

		negate := fmt.Sprintf(`UPDATE %s SET %s = -%s WHERE %s = $1 AND %s > $2`,
			schema.Chapter.Table,
			schema.Chapter.Number, schema.Chapter.Number,
			schema.Chapter.StoryID, schema.Chapter.Number,
		)
		tag, err := tx.Exec(ctx, negate, storyID, chapter.Number)
		if err != nil {
			return fmt.Errorf("postgres: renumber chapters (negate): %w", err)
		}

		restore := fmt.Sprintf(`UPDATE %s SET %s = -%s - 1, %s = $2 WHERE %s = $1 AND %s < 0`,
			schema.Chapter.Table,
			schema.Chapter.Number, schema.Chapter.Number, schema.Chapter.UpdatedAt,
			schema.Chapter.StoryID, schema.Chapter.Number,
		)
		if _, err := tx.Exec(ctx, restore, storyID, now); err != nil {
			return fmt.Errorf("postgres: renumber chapters (restore): %w", err)
		}

		removed = chapter
		shifted = int(tag.RowsAffected())

		return pgTouchStory(ctx, tx, storyID, now)
	})
	if err != nil {
		return nil, 0, err
	}
	return removed, shifted, nil
}

func (repository *postgresRepository) Renumber(ctx context.Context, storyID string, now time.Time) (int, error) {
	var changed int

	err := postgres.InTx(ctx, repository.pool, func(tx pgx.Tx) error {
		if err := pgLockStory(ctx, tx, storyID); err != nil {
			return err
		}

		chapters, err := pgListByStory(ctx, tx, storyID)
		if err != nil {
			return err
		}

		negate := fmt.Sprintf(`UPDATE %s SET %s = -%s WHERE %s = $1`,
			schema.Chapter.Table, schema.Chapter.Number, schema.Chapter.Number, schema.Chapter.StoryID)
		if _, err := tx.Exec(ctx, negate, storyID); err != nil {
			return fmt.Errorf("postgres: renumber chapters (negate): %w", err)
		}

		assign := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
			schema.Chapter.Table, schema.Chapter.Number, schema.Chapter.UpdatedAt, schema.Chapter.ID)

		batch := &pgx.Batch{}
		for i, chapter := range chapters {
			updatedAt := chapter.UpdatedAt
			if chapter.Number != i+1 {
				updatedAt = now
				changed++
			}
			batch.Queue(assign, chapter.ID, i+1, updatedAt)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: renumber chapters (assign): %w", err)
		}

		if changed == 0 {
			return nil
		}
		return pgTouchStory(ctx, tx, storyID, now)
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// # Transaction Helpers

// pgOwnedChapter loads a chapter for mutation under the story lock.
//
// The chapter is read once to resolve ownership, then again after the lock
// because a concurrent delete may have moved or removed it meanwhile.
func pgOwnedChapter(ctx context.Context, tx pgx.Tx, storyID, chapterID string) (*Chapter, error) {
	chapter, err := pgFindByID(ctx, tx, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter.StoryID != storyID {
		return nil, errChapterMismatch()
	}

	if err := pgLockStory(ctx, tx, storyID); err != nil {
		return nil, err
	}

	return pgFindByID(ctx, tx, chapterID)
}

// pgLockStory takes the per-story write lock.
func pgLockStory(ctx context.Context, tx pgx.Tx, storyID string) error {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`,
		schema.Story.ID, schema.Story.Table, schema.Story.ID)

	var lockedID string
	if err := tx.QueryRow(ctx, query, storyID).Scan(&lockedID); err != nil {
		return dberr.Wrap(err, "Story", "postgres: lock story")
	}
	return nil
}

// pgTouchStory bumps the story's updated timestamp.
func pgTouchStory(ctx context.Context, tx pgx.Tx, storyID string, now time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.Story.Table, schema.Story.UpdatedAt, schema.Story.ID)

	if _, err := tx.Exec(ctx, query, storyID, now); err != nil {
		return fmt.Errorf("postgres: touch story: %w", err)
	}
	return nil
}
