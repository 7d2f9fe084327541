// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/talehub/internal/platform/middleware"
	requestutil "github.com/taibuivan/talehub/internal/platform/request"
	"github.com/taibuivan/talehub/internal/platform/respond"
	"github.com/taibuivan/talehub/internal/platform/sec"
)

// # Handler Implementation

// Handler implements the HTTP layer for chapter management.
type Handler struct {
	service *Service
}

// NewHandler constructs a new chapter [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches chapter endpoints under /stories/{storyID}/chapters.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Route("/stories/{storyID}/chapters", func(chapters chi.Router) {
		chapters.Get("/", handler.ListChapters)
		chapters.Get("/number/{number}", handler.GetChapterByNumber)
		chapters.Get("/{chapterID}", handler.GetChapter)

		chapters.Group(func(author chi.Router) {
			author.Use(middleware.RequireRole(sec.RoleAuthor))
			author.Post("/", handler.CreateChapter)
			author.Put("/{chapterID}", handler.UpdateChapter)
			author.Delete("/{chapterID}", handler.DeleteChapter)
		})
	})
}

// chapterRequest is the inbound body for create and update.
type chapterRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

/*
GET /api/v1/stories/{storyID}/chapters.

Response:
  - 200: {items: []Chapter, total: int} ordered by number
  - 404: Story not found
*/
func (handler *Handler) ListChapters(writer http.ResponseWriter, request *http.Request) {
	storyID, err := requestutil.UUIDParam(request, "storyID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapters, err := handler.service.ListByStory(request.Context(), storyID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, chapters)
}

/*
GET /api/v1/stories/{storyID}/chapters/{chapterID}.

Response:
  - 200: Chapter
  - 404: Chapter not found
  - 409: Chapter belongs to another story
*/
func (handler *Handler) GetChapter(writer http.ResponseWriter, request *http.Request) {
	storyID, chapterID, err := pathIDs(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.GetByID(request.Context(), chapterID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if chapter.StoryID != storyID {
		respond.Error(writer, request, errChapterMismatch())
		return
	}

	respond.OK(writer, chapter)
}

/*
GET /api/v1/stories/{storyID}/chapters/number/{number}.

Response:
  - 200: Chapter
  - 400: number is not an integer
  - 404: No chapter holds that number
*/
func (handler *Handler) GetChapterByNumber(writer http.ResponseWriter, request *http.Request) {
	storyID, err := requestutil.UUIDParam(request, "storyID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	number, err := requestutil.IntParam(request, FieldNumber)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.GetByNumber(request.Context(), storyID, number)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chapter)
}

/*
POST /api/v1/stories/{storyID}/chapters.

Description: Appends a chapter; the server assigns its number.

Response:
  - 201: Chapter
  - 400: Validation failure
  - 403: Caller does not own the story
  - 404: Story not found
*/
func (handler *Handler) CreateChapter(writer http.ResponseWriter, request *http.Request) {
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

	var input chapterRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.CreateChapter(request.Context(), actor, storyID, input.Title, input.Content)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, chapter)
}

/*
PUT /api/v1/stories/{storyID}/chapters/{chapterID}.

Description: Whole replacement of title and content.

Response:
  - 200: Chapter
  - 403: Caller does not own the story
  - 404: Chapter not found
  - 409: Chapter belongs to another story
*/
func (handler *Handler) UpdateChapter(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	storyID, chapterID, err := pathIDs(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input chapterRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.UpdateChapter(request.Context(), actor, storyID, chapterID, input.Title, input.Content)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chapter)
}

/*
DELETE /api/v1/stories/{storyID}/chapters/{chapterID}.

Response:
  - 204: Deleted; later chapters moved down by one
  - 403: Caller does not own the story
  - 404: Chapter not found
  - 409: Chapter belongs to another story
*/
func (handler *Handler) DeleteChapter(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	storyID, chapterID, err := pathIDs(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteChapter(request.Context(), actor, storyID, chapterID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// pathIDs reads and validates the story and chapter path parameters.
func pathIDs(request *http.Request) (string, string, error) {
	storyID, err := requestutil.UUIDParam(request, "storyID")
	if err != nil {
		return "", "", err
	}

	chapterID, err := requestutil.UUIDParam(request, "chapterID")
	if err != nil {
		return "", "", err
	}
	return storyID, chapterID, nil
}
