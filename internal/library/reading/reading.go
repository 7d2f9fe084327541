// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package reading tracks where each reader is in each story.

There is at most one record per (user, story). Every write is an upsert: the
record is created on first contact and mutated afterwards, so clients can
resend the same request safely.

# State Machine

  - SetStatus writes the status verbatim.
  - UpdateProgress promotes WANT_TO_READ and LIKED to READING; READING and
    COMPLETED are left alone.
*/
package reading

import "time"

// Status is a reader's relationship to a story.
type Status string

const (
	StatusWantToRead Status = "WANT_TO_READ"
	StatusReading    Status = "READING"
	StatusCompleted  Status = "COMPLETED"
	StatusLiked      Status = "LIKED"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusWantToRead, StatusReading, StatusCompleted, StatusLiked}

// Record is a reader's progress through one story.
type Record struct {
	UserID            string    `json:"user_id"`
	StoryID           string    `json:"story_id"`
	Status            Status    `json:"status"`
	CurrentChapter    int       `json:"current_chapter"`
	LastChapterReadID *string   `json:"last_chapter_read_id"`
	Progress          int       `json:"progress"`
	LastReadAt        time.Time `json:"last_read_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// clone returns a copy that shares no pointers with r.
func (r *Record) clone() *Record {
	copied := *r
	if r.LastChapterReadID != nil {
		id := *r.LastChapterReadID
		copied.LastChapterReadID = &id
	}
	return &copied
}

// promoted returns the status a record moves to when progress is reported.
func promoted(current Status) Status {
	if current == StatusReading || current == StatusCompleted {
		return current
	}
	return StatusReading
}
