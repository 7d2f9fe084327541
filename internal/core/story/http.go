// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/talehub/internal/platform/middleware"
	requestutil "github.com/taibuivan/talehub/internal/platform/request"
	"github.com/taibuivan/talehub/internal/platform/respond"
	"github.com/taibuivan/talehub/internal/platform/sec"
)

// # Handler Implementation

// Handler implements the HTTP layer for stories.
type Handler struct {
	service *Service
}

// NewHandler constructs a new story [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches story endpoints to the API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Get("/stories/{storyID}", handler.GetStory)
	api.Get("/users/{userID}/stories", handler.ListByAuthor)

	api.Group(func(author chi.Router) {
		author.Use(middleware.RequireRole(sec.RoleAuthor))
		author.Post("/stories", handler.CreateStory)
		author.Delete("/stories/{storyID}", handler.DeleteStory)
	})
}

// createStoryRequest defines the inbound JSON schema for new stories.
type createStoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

/*
POST /api/v1/stories.

Response:
  - 201: Story
  - 400: Validation failure
  - 403: Caller is below the author role
  - 404: The caller has no local account
*/
func (handler *Handler) CreateStory(writer http.ResponseWriter, request *http.Request) {
	authorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createStoryRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	story, err := handler.service.CreateStory(request.Context(), CreateInput{
		AuthorID:    authorID,
		Title:       input.Title,
		Description: input.Description,
		Status:      Status(input.Status),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, story)
}

/*
GET /api/v1/stories/{storyID}.

Response:
  - 200: Story
  - 404: Story not found
*/
func (handler *Handler) GetStory(writer http.ResponseWriter, request *http.Request) {
	storyID, err := requestutil.UUIDParam(request, "storyID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	story, err := handler.service.GetStory(request.Context(), storyID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, story)
}

/*
GET /api/v1/users/{userID}/stories.

Response:
  - 200: {items: []Story, total: int} newest first
*/
func (handler *Handler) ListByAuthor(writer http.ResponseWriter, request *http.Request) {
	authorID, err := requestutil.UUIDParam(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stories, err := handler.service.ListByAuthor(request.Context(), authorID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, stories)
}

/*
DELETE /api/v1/stories/{storyID}.

Description: Removes the story, its chapters and every reader's record of it.

Response:
  - 204: Deleted
  - 403: Caller is neither the author nor a moderator
  - 404: Story not found
*/
func (handler *Handler) DeleteStory(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	storyID, err := requestutil.UUIDParam(request, "storyID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteStory(request.Context(), storyID, actor); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
