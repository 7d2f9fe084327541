// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"time"
)

// # Chapter Data Access

/*
Repository defines the data access contract for chapters.

Every mutating method runs in one transaction that first takes the story's
write lock, so mutations of one story are applied one at a time while other
stories proceed in parallel.
*/
type Repository interface {

	/*
		ListByStory returns the chapters of a story ordered by number.

		Returns:
		  - []*Chapter: Possibly empty, never nil
		  - error: Storage failures
	*/
	ListByStory(ctx context.Context, storyID string) ([]*Chapter, error)

	/*
		FindByID returns the chapter with the given ID.

		Returns:
		  - error: apperr.NotFound if missing
	*/
	FindByID(ctx context.Context, id string) (*Chapter, error)

	/*
		FindByNumber returns the chapter holding the ordinal inside a story.

		Returns:
		  - error: apperr.NotFound if no chapter holds it
	*/
	FindByNumber(ctx context.Context, storyID string, number int) (*Chapter, error)

	/*
		Append stores chapter as the last chapter of its story.

		Description: chapter.Number is assigned as the story's chapter count
		plus one and the story's updated timestamp is set to now.

		Returns:
		  - error: apperr.NotFound if the story does not exist
	*/
	Append(ctx context.Context, chapter *Chapter, now time.Time) error

	/*
		Update replaces the title and content of a chapter.

		Returns:
		  - *Chapter: The updated chapter
		  - error: apperr.NotFound, or apperr.BelongsToMismatch when the
		    chapter belongs to another story
	*/
	Update(ctx context.Context, storyID, chapterID, title, content string, now time.Time) (*Chapter, error)

	/*
		Delete removes a chapter and shifts every later chapter down by one.

		Returns:
		  - *Chapter: The removed chapter, with the number it held
		  - int: How many later chapters were shifted
		  - error: apperr.NotFound or apperr.BelongsToMismatch; on any error
		    nothing is changed
	*/
	Delete(ctx context.Context, storyID, chapterID string, now time.Time) (*Chapter, int, error)

	/*
		Renumber rewrites a story's ordinals to 1..N, keeping the existing
		order (number, then creation time).

		Returns:
		  - int: How many chapters changed number
		  - error: apperr.NotFound if the story does not exist
	*/
	Renumber(ctx context.Context, storyID string, now time.Time) (int, error)
}
