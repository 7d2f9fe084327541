// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/platform/validate"
	"github.com/taibuivan/talehub/pkg/slug"
	"github.com/taibuivan/talehub/pkg/uuid"
)

const (
	FieldAuthorID    = "author_id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"

	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// # Service Layer

// Service orchestrates the business logic for stories.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// CreateInput carries the author-supplied fields of a new story.
type CreateInput struct {
	AuthorID    string
	Title       string
	Description string
	Status      Status
}

/*
CreateStory validates and persists a new story.

Description: The slug is derived from the title and the status defaults to
draft when omitted. AuthorID is taken from the caller's claims.

Returns:
  - *Story: The stored story
  - error: Validation, apperr.NotFound("Author") or persistence errors
*/
func (service *Service) CreateStory(ctx context.Context, input CreateInput) (*Story, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Status == "" {
		input.Status = StatusDraft
	}

	validator := &validate.Validator{}
	validator.UUID(FieldAuthorID, input.AuthorID)
	validator.Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, maxTitleLength)
	validator.MaxLen(FieldDescription, input.Description, maxDescriptionLength)
	validator.OneOf(FieldStatus, string(input.Status), string(StatusDraft), string(StatusPublished))

	if err := validator.Err(); err != nil {
		return nil, err
	}

	now := service.now().UTC()
	story := &Story{
		ID:          uuid.New(),
		AuthorID:    input.AuthorID,
		Title:       input.Title,
		Slug:        slug.From(input.Title),
		Description: input.Description,
		Status:      input.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	story.derive()

	if err := service.repo.Create(ctx, story); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "story_created",
		slog.String("story_id", story.ID),
		slog.String("author_id", story.AuthorID),
		slog.String("slug", story.Slug),
	)

	return story, nil
}

// GetStory returns the story or apperr.NotFound.
func (service *Service) GetStory(ctx context.Context, id string) (*Story, error) {
	return service.repo.FindByID(ctx, id)
}

// ListByAuthor returns the stories of one author, newest first.
func (service *Service) ListByAuthor(ctx context.Context, authorID string) ([]*Story, error) {
	return service.repo.ListByAuthor(ctx, authorID)
}

// ListStoryIDs returns every story ID, oldest first.
func (service *Service) ListStoryIDs(ctx context.Context) ([]string, error) {
	return service.repo.ListIDs(ctx)
}

/*
DeleteStory removes the story with its chapters and read records.

Returns:
  - error: apperr.NotFound if the story does not exist, apperr.Forbidden if
    actor is neither its author nor a moderator
*/
func (service *Service) DeleteStory(ctx context.Context, id string, actor sec.Actor) error {
	story, err := service.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !story.EditableBy(actor) {
		return apperr.Forbidden("Only the author or a moderator can delete this story")
	}

	if err := service.repo.Delete(ctx, id); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "story_deleted",
		slog.String("story_id", id),
		slog.String("actor_id", actor.UserID),
	)
	return nil
}
