// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package story manages the story aggregate that owns chapters and read records.

Only the lifecycle needed by the chapter and reading modules lives here:
creation, lookup, listing by author and the cascading delete. Like counters
and rating averages are maintained elsewhere and are read-only in this package.

Every story has exactly one author. Changes to a story or its chapters are
allowed to that author and to moderators and above.
*/
package story

import (
	"time"

	"github.com/taibuivan/talehub/internal/platform/sec"
)

// Status is the publication state of a story.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Story is a serialized work composed of ordered chapters.
type Story struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	IsPublished bool      `json:"is_published"`
	LikeCount   int       `json:"like_count"`
	ReadCount   int       `json:"read_count"`
	RatingAvg   float64   `json:"rating_avg"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// derive fills the fields computed from stored columns.
func (s *Story) derive() {
	s.IsPublished = s.Status != StatusDraft
}

// EditableBy reports whether actor may change the story or its chapters.
func (s *Story) EditableBy(actor sec.Actor) bool {
	return actor.CanModify(s.AuthorID)
}
