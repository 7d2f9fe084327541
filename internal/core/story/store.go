// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import "context"

// # Story Data Access

// Repository defines the data access contract for stories.
type Repository interface {

	/*
		Create persists a new story.

		Returns:
		  - error: apperr.DuplicateKey on an ID clash, apperr.NotFound("Author")
		    when the author has no account, storage failures otherwise
	*/
	Create(ctx context.Context, story *Story) error

	/*
		FindByID returns the story with the given ID.

		Returns:
		  - *Story: Hydrated story
		  - error: apperr.NotFound if missing
	*/
	FindByID(ctx context.Context, id string) (*Story, error)

	// ListByAuthor returns the author's stories, newest first.
	ListByAuthor(ctx context.Context, authorID string) ([]*Story, error)

	// ListIDs returns every story ID, oldest first.
	ListIDs(ctx context.Context) ([]string, error)

	/*
		Delete removes the story together with its chapters and read records
		in a single transaction.

		Returns:
		  - error: apperr.NotFound if the story does not exist
	*/
	Delete(ctx context.Context, id string) error
}
