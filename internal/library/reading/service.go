// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/talehub/internal/core/story"
	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/constants"
	"github.com/taibuivan/talehub/internal/platform/dberr"
	"github.com/taibuivan/talehub/internal/platform/validate"
	"github.com/taibuivan/talehub/internal/users/account"
	"github.com/taibuivan/talehub/pkg/pointer"
	"github.com/taibuivan/talehub/pkg/slice"
)

const (
	FieldStatus        = "status"
	FieldChapterNumber = "chapter_number"
	FieldProgress      = "progress"
	FieldLimit         = "limit"

	// DefaultRecentLimit is the page size of ListRecent when none is given.
	DefaultRecentLimit = 20
	// MaxRecentLimit caps ListRecent.
	MaxRecentLimit = 100
)

// # Collaborators

// UserFinder resolves reader accounts.
type UserFinder interface {
	GetUser(ctx context.Context, id string) (*account.User, error)
}

// StoryFinder resolves stories.
type StoryFinder interface {
	GetStory(ctx context.Context, id string) (*story.Story, error)
}

// # Service Layer

// Service reconciles reading status and progress per (user, story).
type Service struct {
	repo    Repository
	users   UserFinder
	stories StoryFinder
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a new reading [Service].
func NewService(repo Repository, users UserFinder, stories StoryFinder, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		stories: stories,
		logger:  logger,
		now:     time.Now,
	}
}

// # Mutations

/*
SetStatus records the reader's status for a story.

Description: A first call creates the record at chapter 0 with 0% progress.
Later calls only overwrite the status; chapter and progress are kept.

Returns:
  - *Record: The stored record
  - error: Validation errors, apperr.NotFound for an unknown user or story
*/
func (service *Service) SetStatus(ctx context.Context, userID, storyID string, status Status) (*Record, error) {
	validator := &validate.Validator{}
	validateStatus(validator, status)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	target := Target{UserID: userID, StoryID: storyID}
	record, err := service.upsert(ctx, target, func(now time.Time) MutateFunc {
		return func(existing *Record, _ *string) (*Record, error) {
			if existing == nil {
				return &Record{
					UserID:     userID,
					StoryID:    storyID,
					Status:     status,
					LastReadAt: now,
					UpdatedAt:  now,
				}, nil
			}

			existing.Status = status
			existing.UpdatedAt = now
			return existing, nil
		}
	})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "reading_status_set",
		slog.String("user_id", userID),
		slog.String("story_id", storyID),
		slog.String("status", string(status)),
	)
	return record, nil
}

/*
UpdateProgress records that the reader reached a chapter.

Description: A first call creates a READING record. Later calls move the
chapter pointer, overwrite progress only when one is supplied, refresh the
read time and promote the status to READING unless it is READING or
COMPLETED. The chapter ordinal is resolved in the story inside the write;
when no chapter holds it the previous last-read chapter is kept and the call
still succeeds.

Parameters:
  - progress: Percentage in [0, 100]; nil leaves the stored value alone

Returns:
  - *Record: The stored record
  - error: Validation errors, apperr.NotFound for an unknown user or story
*/
func (service *Service) UpdateProgress(ctx context.Context, userID, storyID string, chapterNumber int, progress *int) (*Record, error) {
	validator := &validate.Validator{}
	validator.Custom(FieldChapterNumber, chapterNumber < 0, "Chapter number cannot be negative")
	if progress != nil {
		validator.Range(FieldProgress, *progress, 0, 100)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	target := Target{UserID: userID, StoryID: storyID, ChapterNumber: &chapterNumber}
	record, err := service.upsert(ctx, target, func(now time.Time) MutateFunc {
		return func(existing *Record, lastChapterID *string) (*Record, error) {
			if existing == nil {
				return &Record{
					UserID:            userID,
					StoryID:           storyID,
					Status:            StatusReading,
					CurrentChapter:    chapterNumber,
					LastChapterReadID: lastChapterID,
					Progress:          pointer.Fallback(progress, 0),
					LastReadAt:        now,
					UpdatedAt:         now,
				}, nil
			}

			existing.CurrentChapter = chapterNumber
			existing.Progress = pointer.Fallback(progress, existing.Progress)
			existing.Status = promoted(existing.Status)
			existing.LastReadAt = now
			existing.UpdatedAt = now
			if lastChapterID != nil {
				existing.LastChapterReadID = lastChapterID
			}
			return existing, nil
		}
	})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "reading_progress_updated",
		slog.String("user_id", userID),
		slog.String("story_id", storyID),
		slog.Int("chapter", chapterNumber),
		slog.Int("progress", record.Progress),
		slog.String("status", string(record.Status)),
	)
	return record, nil
}

// Remove deletes the reader's record for a story. A missing record is not an error.
func (service *Service) Remove(ctx context.Context, userID, storyID string) error {
	removed, err := service.repo.Delete(ctx, userID, storyID)
	if err != nil {
		return err
	}

	if removed {
		service.logger.InfoContext(ctx, "reading_record_removed",
			slog.String("user_id", userID),
			slog.String("story_id", storyID),
		)
	}
	return nil
}

// # Queries

// GetStatus returns the record, or nil without error when there is none.
func (service *Service) GetStatus(ctx context.Context, userID, storyID string) (*Record, error) {
	record, err := service.repo.Find(ctx, userID, storyID)
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListByUser returns all of a user's records, most recently read first.
func (service *Service) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	return service.repo.List(ctx, ListFilter{UserID: userID})
}

// ListByUserAndStatus returns a user's records with the given status, most recently read first.
func (service *Service) ListByUserAndStatus(ctx context.Context, userID string, status Status) ([]*Record, error) {
	validator := &validate.Validator{}
	validateStatus(validator, status)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	return service.repo.List(ctx, ListFilter{UserID: userID, Status: &status})
}

/*
ListRecent returns the user's most recently read records.

Parameters:
  - status: Optional status filter
  - limit: Page size; zero selects DefaultRecentLimit
*/
func (service *Service) ListRecent(ctx context.Context, userID string, status *Status, limit int) ([]*Record, error) {
	if limit == 0 {
		limit = DefaultRecentLimit
	}

	validator := &validate.Validator{}
	validator.Range(FieldLimit, limit, 1, MaxRecentLimit)
	if status != nil {
		validateStatus(validator, *status)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	return service.repo.List(ctx, ListFilter{UserID: userID, Status: status, Limit: limit})
}

// # Internal Helpers

/*
upsert checks the user and story, then runs the repository upsert.

Description: build is called once per attempt so every attempt writes a fresh
timestamp. An attempt is retried when another writer inserted the
record first (DuplicateKey) or when a referenced row vanished mid-flight
(foreign key violation); the next attempt re-checks the user and story and
takes the update path.
*/
func (service *Service) upsert(
	ctx context.Context,
	target Target,
	build func(now time.Time) MutateFunc,
) (*Record, error) {
	var lastErr error

	for attempt := 1; attempt <= constants.UpsertMaxAttempts; attempt++ {
		if err := service.ensureParticipants(ctx, target.UserID, target.StoryID); err != nil {
			return nil, err
		}

		record, err := service.repo.Upsert(ctx, target, build(service.now().UTC()))
		if err == nil {
			return record, nil
		}

		if !apperr.Is(err, apperr.CodeDuplicateKey) && !dberr.IsForeignKeyViolation(err) {
			return nil, err
		}

		lastErr = err
		service.logger.WarnContext(ctx, "reading_upsert_retry",
			slog.String("user_id", target.UserID),
			slog.String("story_id", target.StoryID),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}

	return nil, apperr.Internal(lastErr)
}

// ensureParticipants verifies that both sides of the record exist.
func (service *Service) ensureParticipants(ctx context.Context, userID, storyID string) error {
	if _, err := service.users.GetUser(ctx, userID); err != nil {
		return err
	}
	if _, err := service.stories.GetStory(ctx, storyID); err != nil {
		return err
	}
	return nil
}

func validateStatus(validator *validate.Validator, status Status) {
	allowed := slice.Strings(Statuses)
	validator.OneOf(FieldStatus, string(status), allowed...)
}
