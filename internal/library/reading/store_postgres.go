// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/talehub/internal/platform/database/schema"
	"github.com/taibuivan/talehub/internal/platform/dberr"
	"github.com/taibuivan/talehub/internal/platform/postgres"
)

// # PostgreSQL Repository

// postgresRepository implements [Repository] using pgx.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed reading store.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

var pgSelectRecord = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
	schema.List(schema.ReadRecord.Columns()), schema.ReadRecord.Table,
	schema.ReadRecord.UserID, schema.ReadRecord.StoryID)

func scanPgRecord(row pgx.Row) (*Record, error) {
	var record Record
	err := row.Scan(
		&record.UserID, &record.StoryID, &record.Status, &record.CurrentChapter,
		&record.LastChapterReadID, &record.Progress, &record.LastReadAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (repository *postgresRepository) Find(ctx context.Context, userID, storyID string) (*Record, error) {
	record, err := scanPgRecord(repository.pool.QueryRow(ctx, pgSelectRecord, userID, storyID))
	if err != nil {
		return nil, dberr.Wrap(err, "ReadRecord", "postgres: find read record")
	}
	return record, nil
}

func (repository *postgresRepository) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	query, args, err := listQuery(filter, sq.Dollar)
	if err != nil {
		return nil, fmt.Errorf("postgres: build read record query: %w", err)
	}

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list read records: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanPgRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan read record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate read records: %w", err)
	}
	return records, nil
}

/*
Upsert applies mutate to the (user, story) record atomically.

Description: The story row is share-locked first, the same order chapter
writers and the story delete take, so the chapter number resolves against a
settled numbering. An existing record is then locked with FOR UPDATE, so
concurrent updates of the same key apply one after another. A missing record
cannot be locked; two first writers both reach the INSERT and the primary key
lets exactly one through. The loser gets apperr.DuplicateKey and its
transaction is rolled back.
*/
func (repository *postgresRepository) Upsert(ctx context.Context, target Target, mutate MutateFunc) (*Record, error) {
	var stored *Record

	err := postgres.InTx(ctx, repository.pool, func(tx pgx.Tx) error {
		lockStory := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR SHARE`,
			schema.Story.ID, schema.Story.Table, schema.Story.ID)
		var storyID string
		if err := tx.QueryRow(ctx, lockStory, target.StoryID).Scan(&storyID); err != nil {
			return dberr.Wrap(err, "Story", "postgres: lock story")
		}

		chapterID, err := pgResolveChapter(ctx, tx, target)
		if err != nil {
			return err
		}

		existing, err := scanPgRecord(tx.QueryRow(ctx, pgSelectRecord+" FOR UPDATE", target.UserID, target.StoryID))
		if err != nil && !dberr.IsNoRows(err) {
			return fmt.Errorf("postgres: lock read record: %w", err)
		}

		if existing == nil {
			record, err := mutate(nil, chapterID)
			if err != nil {
				return err
			}
			if err := pgInsertRecord(ctx, tx, record); err != nil {
				return err
			}
			stored = record
			return nil
		}

		record, err := mutate(existing.clone(), chapterID)
		if err != nil {
			return err
		}
		if err := pgUpdateRecord(ctx, tx, record); err != nil {
			return err
		}
		stored = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// pgResolveChapter returns the ID of the chapter holding the target number.
func pgResolveChapter(ctx context.Context, tx pgx.Tx, target Target) (*string, error) {
	if target.ChapterNumber == nil {
		return nil, nil
	}

	query, args, err := chapterIDQuery(target.StoryID, *target.ChapterNumber, sq.Dollar)
	if err != nil {
		return nil, fmt.Errorf("postgres: build chapter query: %w", err)
	}

	var chapterID string
	err = tx.QueryRow(ctx, query, args...).Scan(&chapterID)
	if dberr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: resolve chapter: %w", err)
	}
	return &chapterID, nil
}

func (repository *postgresRepository) Delete(ctx context.Context, userID, storyID string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.ReadRecord.Table, schema.ReadRecord.UserID, schema.ReadRecord.StoryID)

	tag, err := repository.pool.Exec(ctx, query, userID, storyID)
	if err != nil {
		return false, fmt.Errorf("postgres: delete read record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func pgInsertRecord(ctx context.Context, tx pgx.Tx, record *Record) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.ReadRecord.Table, schema.List(schema.ReadRecord.Columns()))

	_, err := tx.Exec(ctx, query,
		record.UserID, record.StoryID, record.Status, record.CurrentChapter,
		record.LastChapterReadID, record.Progress, record.LastReadAt, record.UpdatedAt,
	)
	return dberr.Wrap(err, "ReadRecord", "postgres: insert read record")
}

func pgUpdateRecord(ctx context.Context, tx pgx.Tx, record *Record) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8
		WHERE %s = $1 AND %s = $2`,
		schema.ReadRecord.Table,
		schema.ReadRecord.Status, schema.ReadRecord.CurrentChapter, schema.ReadRecord.LastChapterReadID,
		schema.ReadRecord.Progress, schema.ReadRecord.LastReadAt, schema.ReadRecord.UpdatedAt,
		schema.ReadRecord.UserID, schema.ReadRecord.StoryID,
	)

	_, err := tx.Exec(ctx, query,
		record.UserID, record.StoryID,
		record.Status, record.CurrentChapter, record.LastChapterReadID,
		record.Progress, record.LastReadAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update read record: %w", err)
	}
	return nil
}
