// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/taibuivan/talehub/internal/platform/database/schema"
	"github.com/taibuivan/talehub/internal/platform/dberr"
	"github.com/taibuivan/talehub/internal/platform/sqlite"
)

// # SQLite Repository

// sqliteRepository implements [Repository] on database/sql.
type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository constructs a SQLite backed reading store.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

var liteSelectRecord = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? AND %s = ?`,
	schema.List(schema.ReadRecord.Columns()), schema.ReadRecord.Table,
	schema.ReadRecord.UserID, schema.ReadRecord.StoryID)

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanLiteRecord(row sqlScanner) (*Record, error) {
	var (
		record                Record
		lastChapter           sql.NullString
		lastReadAt, updatedAt string
	)
	err := row.Scan(
		&record.UserID, &record.StoryID, &record.Status, &record.CurrentChapter,
		&lastChapter, &record.Progress, &lastReadAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastChapter.Valid {
		record.LastChapterReadID = &lastChapter.String
	}
	if record.LastReadAt, err = sqlite.ParseTime(lastReadAt); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = sqlite.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &record, nil
}

func (repository *sqliteRepository) Find(ctx context.Context, userID, storyID string) (*Record, error) {
	record, err := scanLiteRecord(repository.db.QueryRowContext(ctx, liteSelectRecord, userID, storyID))
	if err != nil {
		return nil, dberr.Wrap(err, "ReadRecord", "sqlite: find read record")
	}
	return record, nil
}

func (repository *sqliteRepository) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	query, args, err := listQuery(filter, sq.Question)
	if err != nil {
		return nil, fmt.Errorf("sqlite: build read record query: %w", err)
	}

	rows, err := repository.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list read records: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan read record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate read records: %w", err)
	}
	return records, nil
}

// Upsert holds the database write lock for the whole find-mutate-write cycle.
func (repository *sqliteRepository) Upsert(ctx context.Context, target Target, mutate MutateFunc) (*Record, error) {
	var stored *Record

	err := sqlite.InTx(ctx, repository.db, func(tx *sql.Tx) error {
		chapterID, err := liteResolveChapter(ctx, tx, target)
		if err != nil {
			return err
		}

		existing, err := scanLiteRecord(tx.QueryRowContext(ctx, liteSelectRecord, target.UserID, target.StoryID))
		if err != nil && !dberr.IsNoRows(err) {
			return fmt.Errorf("sqlite: read record: %w", err)
		}

		var record *Record
		if existing == nil {
			if record, err = mutate(nil, chapterID); err != nil {
				return err
			}
			err = liteInsertRecord(ctx, tx, record)
		} else {
			if record, err = mutate(existing.clone(), chapterID); err != nil {
				return err
			}
			err = liteUpdateRecord(ctx, tx, record)
		}
		if err != nil {
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

// liteResolveChapter returns the ID of the chapter holding the target number.
func liteResolveChapter(ctx context.Context, tx *sql.Tx, target Target) (*string, error) {
	if target.ChapterNumber == nil {
		return nil, nil
	}

	query, args, err := chapterIDQuery(target.StoryID, *target.ChapterNumber, sq.Question)
	if err != nil {
		return nil, fmt.Errorf("sqlite: build chapter query: %w", err)
	}

	var chapterID string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&chapterID)
	if dberr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolve chapter: %w", err)
	}
	return &chapterID, nil
}

func (repository *sqliteRepository) Delete(ctx context.Context, userID, storyID string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND %s = ?`,
		schema.ReadRecord.Table, schema.ReadRecord.UserID, schema.ReadRecord.StoryID)

	result, err := repository.db.ExecContext(ctx, query, userID, storyID)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete read record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: delete read record: %w", err)
	}
	return affected > 0, nil
}

func liteInsertRecord(ctx context.Context, tx *sql.Tx, record *Record) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		schema.ReadRecord.Table, schema.List(schema.ReadRecord.Columns()))

	_, err := tx.ExecContext(ctx, query,
		record.UserID, record.StoryID, string(record.Status), record.CurrentChapter,
		record.LastChapterReadID, record.Progress,
		sqlite.FormatTime(record.LastReadAt), sqlite.FormatTime(record.UpdatedAt),
	)
	return dberr.Wrap(err, "ReadRecord", "sqlite: insert read record")
}

func liteUpdateRecord(ctx context.Context, tx *sql.Tx, record *Record) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?
		WHERE %s = ? AND %s = ?`,
		schema.ReadRecord.Table,
		schema.ReadRecord.Status, schema.ReadRecord.CurrentChapter, schema.ReadRecord.LastChapterReadID,
		schema.ReadRecord.Progress, schema.ReadRecord.LastReadAt, schema.ReadRecord.UpdatedAt,
		schema.ReadRecord.UserID, schema.ReadRecord.StoryID,
	)

	_, err := tx.ExecContext(ctx, query,
		string(record.Status), record.CurrentChapter, record.LastChapterReadID, record.Progress,
		sqlite.FormatTime(record.LastReadAt), sqlite.FormatTime(record.UpdatedAt),
		record.UserID, record.StoryID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update read record: %w", err)
	}
	return nil
}
