// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taibuivan/talehub/internal/platform/database/schema"
	"github.com/taibuivan/talehub/internal/platform/dberr"
	"github.com/taibuivan/talehub/internal/platform/sqlite"
)

// # SQLite Repository

// sqliteRepository implements [Repository] on database/sql.
//
// Transactions begin IMMEDIATE, so the database write lock is held from the
// first statement; that is coarser than a per-story lock but gives the same
// ordering guarantee.
type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository constructs a SQLite backed chapter store.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlScanner interface {
	Scan(dest ...any) error
}

var liteSelectChapter = fmt.Sprintf(`SELECT %s FROM %s`, schema.List(schema.Chapter.Columns()), schema.Chapter.Table)

func scanLiteChapter(row sqlScanner) (*Chapter, error) {
	var (
		chapter              Chapter
		createdAt, updatedAt string
	)
	err := row.Scan(
		&chapter.ID, &chapter.StoryID, &chapter.Title, &chapter.Content,
		&chapter.Number, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if chapter.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if chapter.UpdatedAt, err = sqlite.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (repository *sqliteRepository) ListByStory(ctx context.Context, storyID string) ([]*Chapter, error) {
	return liteListByStory(ctx, repository.db, storyID)
}

func liteListByStory(ctx context.Context, querier sqlQuerier, storyID string) ([]*Chapter, error) {
	query := fmt.Sprintf(`%s WHERE %s = ? ORDER BY %s ASC, %s ASC`,
		liteSelectChapter, schema.Chapter.StoryID, schema.Chapter.Number, schema.Chapter.CreatedAt)

	rows, err := querier.QueryContext(ctx, query, storyID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list chapters: %w", err)
	}
	defer rows.Close()

	chapters := []*Chapter{}
	for rows.Next() {
		chapter, err := scanLiteChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate chapters: %w", err)
	}
	return chapters, nil
}

func (repository *sqliteRepository) FindByID(ctx context.Context, id string) (*Chapter, error) {
	return liteFindByID(ctx, repository.db, id)
}

func liteFindByID(ctx context.Context, querier sqlQuerier, id string) (*Chapter, error) {
	query := fmt.Sprintf(`%s WHERE %s = ?`, liteSelectChapter, schema.Chapter.ID)

	chapter, err := scanLiteChapter(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Chapter", "sqlite: find chapter")
	}
	return chapter, nil
}

func (repository *sqliteRepository) FindByNumber(ctx context.Context, storyID string, number int) (*Chapter, error) {
	query := fmt.Sprintf(`%s WHERE %s = ? AND %s = ?`, liteSelectChapter, schema.Chapter.StoryID, schema.Chapter.Number)

	chapter, err := scanLiteChapter(repository.db.QueryRowContext(ctx, query, storyID, number))
	if err != nil {
		return nil, dberr.Wrap(err, "Chapter", "sqlite: find chapter by number")
	}
	return chapter, nil
}

func (repository *sqliteRepository) Append(ctx context.Context, chapter *Chapter, now time.Time) error {
	return sqlite.InTx(ctx, repository.db, func(tx *sql.Tx) error {
		if err := liteStoryExists(ctx, tx, chapter.StoryID); err != nil {
			return err
		}

		var count int
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, schema.Chapter.Table, schema.Chapter.StoryID)
		if err := tx.QueryRowContext(ctx, countQuery, chapter.StoryID).Scan(&count); err != nil {
			return fmt.Errorf("sqlite: count chapters: %w", err)
		}

		chapter.Number = count + 1
		chapter.CreatedAt = now.UTC()
		chapter.UpdatedAt = now.UTC()

		insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			schema.Chapter.Table, schema.List(schema.Chapter.Columns()))

		_, err := tx.ExecContext(ctx, insert,
			chapter.ID, chapter.StoryID, chapter.Title, chapter.Content,
			chapter.Number, sqlite.FormatTime(now), sqlite.FormatTime(now),
		)
		if err != nil {
			return dberr.Wrap(err, "Chapter", "sqlite: insert chapter")
		}

		return liteTouchStory(ctx, tx, chapter.StoryID, now)
	})
}

func (repository *sqliteRepository) Update(ctx context.Context, storyID, chapterID, title, content string, now time.Time) (*Chapter, error) {
	var updated *Chapter

	err := sqlite.InTx(ctx, repository.db, func(tx *sql.Tx) error {
		chapter, err := liteOwnedChapter(ctx, tx, storyID, chapterID)
		if err != nil {
			return err
		}

		update := fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ?, %s = ? WHERE %s = ?`,
			schema.Chapter.Table,
			schema.Chapter.Title, schema.Chapter.Content, schema.Chapter.UpdatedAt,
			schema.Chapter.ID,
		)
		if _, err := tx.ExecContext(ctx, update, title, content, sqlite.FormatTime(now), chapterID); err != nil {
			return fmt.Errorf("sqlite: update chapter: %w", err)
		}

		chapter.Title = title
		chapter.Content = content
		chapter.UpdatedAt = now.UTC()
		updated = chapter

		return liteTouchStory(ctx, tx, storyID, now)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete uses the same two-pass shift as the PostgreSQL store.
func (repository *sqliteRepository) Delete(ctx context.Context, storyID, chapterID string, now time.Time) (*Chapter, int, error) {
	var (
		removed *Chapter
		shifted int
	)

	err := sqlite.InTx(ctx, repository.db, func(tx *sql.Tx) error {
		chapter, err := liteOwnedChapter(ctx, tx, storyID, chapterID)
		if err != nil {
			return err
		}

		remove := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, schema.Chapter.Table, schema.Chapter.ID)
		if _, err := tx.ExecContext(ctx, remove, chapterID); err != nil {
			return fmt.Errorf("sqlite: delete chapter: %w", err)
		}

		negate := fmt.Sprintf(`UPDATE %s SET %s = -%s WHERE %s = ? AND %s > ?`,
			schema.Chapter.Table,
			schema.Chapter.Number, schema.Chapter.Number,
			schema.Chapter.StoryID, schema.Chapter.Number,
		)
		result, err := tx.ExecContext(ctx, negate, storyID, chapter.Number)
		if err != nil {
			return fmt.Errorf("sqlite: renumber chapters (negate): %w", err)
		}

		restore := fmt.Sprintf(`UPDATE %s SET %s = -%s - 1, %s = ? WHERE %s = ? AND %s < 0`,
			schema.Chapter.Table,
			schema.Chapter.Number, schema.Chapter.Number, schema.Chapter.UpdatedAt,
			schema.Chapter.StoryID, schema.Chapter.Number,
		)
		if _, err := tx.ExecContext(ctx, restore, sqlite.FormatTime(now), storyID); err != nil {
			return fmt.Errorf("sqlite: renumber chapters (restore): %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: renumber chapters: %w", err)
		}

		removed = chapter
		shifted = int(affected)

		return liteTouchStory(ctx, tx, storyID, now)
	})
	if err != nil {
		return nil, 0, err
	}
	return removed, shifted, nil
}

func (repository *sqliteRepository) Renumber(ctx context.Context, storyID string, now time.Time) (int, error) {
	var changed int

	err := sqlite.InTx(ctx, repository.db, func(tx *sql.Tx) error {
		if err := liteStoryExists(ctx, tx, storyID); err != nil {
			return err
		}

		chapters, err := liteListByStory(ctx, tx, storyID)
		if err != nil {
			return err
		}

		negate := fmt.Sprintf(`UPDATE %s SET %s = -%s WHERE %s = ?`,
			schema.Chapter.Table, schema.Chapter.Number, schema.Chapter.Number, schema.Chapter.StoryID)
		if _, err := tx.ExecContext(ctx, negate, storyID); err != nil {
			return fmt.Errorf("sqlite: renumber chapters (negate): %w", err)
		}

		assign := fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ? WHERE %s = ?`,
			schema.Chapter.Table, schema.Chapter.Number, schema.Chapter.UpdatedAt, schema.Chapter.ID)

		statement, err := tx.PrepareContext(ctx, assign)
		if err != nil {
			return fmt.Errorf("sqlite: prepare renumber: %w", err)
		}
		defer statement.Close()

		for i, chapter := range chapters {
			updatedAt := chapter.UpdatedAt
			if chapter.Number != i+1 {
				updatedAt = now
				changed++
			}
			if _, err := statement.ExecContext(ctx, i+1, sqlite.FormatTime(updatedAt), chapter.ID); err != nil {
				return fmt.Errorf("sqlite: renumber chapters (assign): %w", err)
			}
		}

		if changed == 0 {
			return nil
		}
		return liteTouchStory(ctx, tx, storyID, now)
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// # Transaction Helpers

func liteOwnedChapter(ctx context.Context, tx *sql.Tx, storyID, chapterID string) (*Chapter, error) {
	chapter, err := liteFindByID(ctx, tx, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter.StoryID != storyID {
		return nil, errChapterMismatch()
	}
	return chapter, nil
}

func liteStoryExists(ctx context.Context, tx *sql.Tx, storyID string) error {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, schema.Story.ID, schema.Story.Table, schema.Story.ID)

	var id string
	if err := tx.QueryRowContext(ctx, query, storyID).Scan(&id); err != nil {
		return dberr.Wrap(err, "Story", "sqlite: find story")
	}
	return nil
}

func liteTouchStory(ctx context.Context, tx *sql.Tx, storyID string, now time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`,
		schema.Story.Table, schema.Story.UpdatedAt, schema.Story.ID)

	if _, err := tx.ExecContext(ctx, query, sqlite.FormatTime(now), storyID); err != nil {
		return fmt.Errorf("sqlite: touch story: %w", err)
	}
	return nil
}
