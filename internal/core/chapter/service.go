// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/talehub/internal/core/story"
	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/platform/validate"
	"github.com/taibuivan/talehub/pkg/uuid"
)

const (
	FieldTitle   = "title"
	FieldContent = "content"
	FieldNumber  = "number"

	maxTitleLength   = 200
	maxContentLength = 200_000
)

// StoryFinder resolves the owning story.
type StoryFinder interface {
	GetStory(ctx context.Context, id string) (*story.Story, error)
}

// # Service Layer

// Service orchestrates chapter numbering and lookups.
type Service struct {
	repo    Repository
	stories StoryFinder
	cache   ListCache
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a new [Service]. A nil cache disables list caching.
func NewService(repo Repository, stories StoryFinder, cache ListCache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		repo:    repo,
		stories: stories,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// # Mutations

// authorize allows actor to change the chapters of storyID when it may change
// the story itself.
func (service *Service) authorize(ctx context.Context, storyID string, actor sec.Actor) error {
	owner, err := service.stories.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	if !owner.EditableBy(actor) {
		return apperr.Forbidden("Only the story's author or a moderator can change its chapters")
	}
	return nil
}

/*
CreateChapter appends a chapter to the end of a story.

Description: The ordinal is assigned by the store as the current chapter
count plus one, under the story's write lock.

Returns:
  - *Chapter: The stored chapter with its ordinal
  - error: Validation errors, apperr.NotFound if the story does not exist,
    apperr.Forbidden if actor does not own the story
*/
func (service *Service) CreateChapter(ctx context.Context, actor sec.Actor, storyID, title, content string) (*Chapter, error) {
	title = strings.TrimSpace(title)
	if err := validateChapter(title, content); err != nil {
		return nil, err
	}
	if err := service.authorize(ctx, storyID, actor); err != nil {
		return nil, err
	}

	chapter := &Chapter{
		ID:      uuid.New(),
		StoryID: storyID,
		Title:   title,
		Content: content,
	}

	if err := service.repo.Append(ctx, chapter, service.now().UTC()); err != nil {
		return nil, err
	}
	service.cache.Invalidate(ctx, storyID)

	service.logger.InfoContext(ctx, "chapter_created",
		slog.String("chapter_id", chapter.ID),
		slog.String("story_id", storyID),
		slog.String("actor_id", actor.UserID),
		slog.Int("number", chapter.Number),
	)

	return chapter, nil
}

/*
UpdateChapter replaces the title and content of a chapter. The ordinal never
changes.

Returns:
  - error: apperr.NotFound, apperr.BelongsToMismatch, apperr.Forbidden or
    validation errors
*/
func (service *Service) UpdateChapter(ctx context.Context, actor sec.Actor, storyID, chapterID, title, content string) (*Chapter, error) {
	title = strings.TrimSpace(title)
	if err := validateChapter(title, content); err != nil {
		return nil, err
	}
	if err := service.authorize(ctx, storyID, actor); err != nil {
		return nil, err
	}

	chapter, err := service.repo.Update(ctx, storyID, chapterID, title, content, service.now().UTC())
	if err != nil {
		return nil, err
	}
	service.cache.Invalidate(ctx, storyID)

	service.logger.InfoContext(ctx, "chapter_updated",
		slog.String("chapter_id", chapterID),
		slog.String("story_id", storyID),
	)

	return chapter, nil
}

/*
DeleteChapter removes a chapter and closes the gap.

Description: Every chapter numbered above the removed one moves down by
exactly one. The removal, the shift and the story timestamp commit together.

Returns:
  - error: apperr.NotFound, apperr.BelongsToMismatch or apperr.Forbidden
*/
func (service *Service) DeleteChapter(ctx context.Context, actor sec.Actor, storyID, chapterID string) error {
	if err := service.authorize(ctx, storyID, actor); err != nil {
		return err
	}

	removed, shifted, err := service.repo.Delete(ctx, storyID, chapterID, service.now().UTC())
	if err != nil {
		return err
	}
	service.cache.Invalidate(ctx, storyID)

	service.logger.InfoContext(ctx, "chapter_deleted",
		slog.String("chapter_id", chapterID),
		slog.String("story_id", storyID),
		slog.Int("number", removed.Number),
	)

	if shifted > 0 {
		service.logger.InfoContext(ctx, "chapters_renumbered",
			slog.String("story_id", storyID),
			slog.Int("from_number", removed.Number+1),
			slog.Int("shifted", shifted),
		)
	}

	return nil
}

// # Lookups

// GetByNumber returns the chapter holding number in the story, or apperr.NotFound.
func (service *Service) GetByNumber(ctx context.Context, storyID string, number int) (*Chapter, error) {
	return service.repo.FindByNumber(ctx, storyID, number)
}

// GetByID returns the chapter or apperr.NotFound.
func (service *Service) GetByID(ctx context.Context, chapterID string) (*Chapter, error) {
	return service.repo.FindByID(ctx, chapterID)
}

/*
ListByStory returns a story's chapters in ascending ordinal order.

Returns:
  - []*Chapter: Possibly empty
  - error: apperr.NotFound if the story does not exist
*/
func (service *Service) ListByStory(ctx context.Context, storyID string) ([]*Chapter, error) {
	if _, err := service.stories.GetStory(ctx, storyID); err != nil {
		return nil, err
	}

	if chapters, ok := service.cache.Get(ctx, storyID); ok {
		return chapters, nil
	}

	chapters, err := service.repo.ListByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	service.cache.Set(ctx, storyID, chapters)
	return chapters, nil
}

// # Ordinal Maintenance

// VerifyOrdinals audits a story's numbering without changing it.
func (service *Service) VerifyOrdinals(ctx context.Context, storyID string) (*OrdinalReport, error) {
	if _, err := service.stories.GetStory(ctx, storyID); err != nil {
		return nil, err
	}

	chapters, err := service.repo.ListByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	report := CheckOrdinals(storyID, numbersOf(chapters))
	if !report.Dense {
		service.logger.WarnContext(ctx, "chapter_ordinals_not_dense",
			slog.String("story_id", storyID),
			slog.Any("missing", report.Missing),
			slog.Any("out_of_range", report.OutOfRange),
		)
	}
	return &report, nil
}

/*
RepairOrdinals renumbers a story's chapters to 1..N, keeping their order.

Returns:
  - *OrdinalReport: The state after the repair, with Renumbered set
  - error: apperr.NotFound if the story does not exist
*/
func (service *Service) RepairOrdinals(ctx context.Context, storyID string) (*OrdinalReport, error) {
	changed, err := service.repo.Renumber(ctx, storyID, service.now().UTC())
	if err != nil {
		return nil, err
	}
	service.cache.Invalidate(ctx, storyID)

	chapters, err := service.repo.ListByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	report := CheckOrdinals(storyID, numbersOf(chapters))
	report.Renumbered = changed

	service.logger.InfoContext(ctx, "chapter_ordinals_repaired",
		slog.String("story_id", storyID),
		slog.Int("renumbered", changed),
	)
	return &report, nil
}

// validateChapter checks the author-supplied fields.
func validateChapter(title, content string) error {
	validator := &validate.Validator{}
	validator.Required(FieldTitle, title).MaxLen(FieldTitle, title, maxTitleLength)
	validator.MaxLen(FieldContent, content, maxContentLength)
	return validator.Err()
}
