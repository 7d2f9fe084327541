// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/taibuivan/talehub/internal/platform/database/schema"
)

// # Reading Data Access

// Target names the record an upsert writes.
type Target struct {
	UserID  string
	StoryID string

	// ChapterNumber, when set, is resolved to a chapter ID inside the upsert
	// transaction.
	ChapterNumber *int
}

// MutateFunc computes the record to store.
//
// existing is nil when the (user, story) pair has no record yet; otherwise it
// is a private copy the function may modify and return. chapterID is the
// chapter holding the target's number, or nil when none does.
type MutateFunc func(existing *Record, chapterID *string) (*Record, error)

// ListFilter selects a user's records, newest read first.
type ListFilter struct {
	UserID string
	Status *Status

	// Limit caps the result; zero means no cap.
	Limit int
}

// Repository defines the data access contract for read records.
type Repository interface {

	/*
		Find returns the record for (userID, storyID).

		Returns:
		  - error: apperr.NotFound when absent
	*/
	Find(ctx context.Context, userID, storyID string) (*Record, error)

	/*
		List returns the records matching filter ordered by last read time,
		newest first.
	*/
	List(ctx context.Context, filter ListFilter) ([]*Record, error)

	/*
		Upsert runs find, mutate and write in one transaction holding the
		record's lock.

		Description: The chapter number of target is resolved in the same
		transaction, so a concurrent renumber cannot slip between the lookup
		and the write. When no record exists the result of mutate(nil) is
		inserted. If a concurrent transaction inserted the same key first,
		the insert fails with apperr.DuplicateKey and nothing is written; the
		caller is expected to retry, which then takes the update path.

		Returns:
		  - *Record: The stored record
		  - error: apperr.DuplicateKey on an insert race, apperr.NotFound for
		    a missing story, mutate's error, or storage failures
	*/
	Upsert(ctx context.Context, target Target, mutate MutateFunc) (*Record, error)

	/*
		Delete removes the record.

		Returns:
		  - bool: Whether a record existed
	*/
	Delete(ctx context.Context, userID, storyID string) (bool, error)
}

// chapterIDQuery selects the chapter holding number within a story.
func chapterIDQuery(storyID string, number int, placeholders sq.PlaceholderFormat) (string, []any, error) {
	return sq.Select(schema.Chapter.ID).
		From(schema.Chapter.Table).
		Where(sq.Eq{schema.Chapter.StoryID: storyID, schema.Chapter.Number: number}).
		PlaceholderFormat(placeholders).
		ToSql()
}

// listQuery builds the shared listing SELECT for both backends.
func listQuery(filter ListFilter, placeholders sq.PlaceholderFormat) (string, []any, error) {
	builder := sq.Select(schema.ReadRecord.Columns()...).
		From(schema.ReadRecord.Table).
		Where(sq.Eq{schema.ReadRecord.UserID: filter.UserID}).
		OrderBy(schema.ReadRecord.LastReadAt+" DESC", schema.ReadRecord.StoryID+" ASC").
		PlaceholderFormat(placeholders)

	if filter.Status != nil {
		builder = builder.Where(sq.Eq{schema.ReadRecord.Status: string(*filter.Status)})
	}

	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	return builder.ToSql()
}
