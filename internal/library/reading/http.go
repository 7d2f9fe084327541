// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/talehub/internal/platform/middleware"
	requestutil "github.com/taibuivan/talehub/internal/platform/request"
	"github.com/taibuivan/talehub/internal/platform/respond"
	"github.com/taibuivan/talehub/internal/platform/validate"
)

// # Handler Implementation

// Handler implements the HTTP layer for reading progress.
//
// Every route acts on the authenticated reader; there is no way to read or
// write another user's records.
type Handler struct {
	service *Service
}

// NewHandler constructs a new reading [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches the /reads endpoints to the API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Route("/reads", func(reads chi.Router) {
		reads.Use(middleware.RequireAuth)

		reads.Get("/", handler.ListReads)
		reads.Get("/recent", handler.ListRecent)
		reads.Get("/{storyID}", handler.GetRead)
		reads.Put("/{storyID}/status", handler.SetStatus)
		reads.Put("/{storyID}/progress", handler.UpdateProgress)
		reads.Delete("/{storyID}", handler.RemoveRead)
	})
}

// setStatusRequest is the body of PUT /reads/{storyID}/status.
type setStatusRequest struct {
	Status string `json:"status"`
}

// updateProgressRequest is the body of PUT /reads/{storyID}/progress.
// An omitted progress keeps the stored value.
type updateProgressRequest struct {
	ChapterNumber *int `json:"chapter_number"`
	Progress      *int `json:"progress"`
}

/*
GET /api/v1/reads.

Request:
  - status: Optional status filter

Response:
  - 200: {items: []Record, total: int}, most recently read first
  - 400: Unknown status
*/
func (handler *Handler) ListReads(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var records []*Record
	if status := request.URL.Query().Get(FieldStatus); status != "" {
		records, err = handler.service.ListByUserAndStatus(request.Context(), userID, Status(status))
	} else {
		records, err = handler.service.ListByUser(request.Context(), userID)
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, records)
}

/*
GET /api/v1/reads/recent.

Request:
  - status: Optional status filter
  - limit: Page size, 1..100 (default 20)

Response:
  - 200: {items: []Record}
*/
func (handler *Handler) ListRecent(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	query := request.URL.Query()

	var status *Status
	if raw := query.Get(FieldStatus); raw != "" {
		parsed := Status(raw)
		status = &parsed
	}

	limit := 0
	if raw := query.Get(FieldLimit); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			respond.Error(writer, request, validate.FieldError(FieldLimit, "Must be an integer"))
			return
		}
	}

	records, err := handler.service.ListRecent(request.Context(), userID, status, limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.List(writer, records)
}

/*
GET /api/v1/reads/{storyID}.

Response:
  - 200: Record, or null when the reader has no record for the story
*/
func (handler *Handler) GetRead(writer http.ResponseWriter, request *http.Request) {
	userID, storyID, err := readKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.GetStatus(request.Context(), userID, storyID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

/*
PUT /api/v1/reads/{storyID}/status.

Response:
  - 200: Record
  - 400: Unknown status
  - 404: Unknown user or story
*/
func (handler *Handler) SetStatus(writer http.ResponseWriter, request *http.Request) {
	userID, storyID, err := readKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setStatusRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.SetStatus(request.Context(), userID, storyID, Status(input.Status))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

/*
PUT /api/v1/reads/{storyID}/progress.

Response:
  - 200: Record
  - 400: Missing chapter_number or progress out of range
  - 404: Unknown user or story
*/
func (handler *Handler) UpdateProgress(writer http.ResponseWriter, request *http.Request) {
	userID, storyID, err := readKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProgressRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.ChapterNumber == nil {
		respond.Error(writer, request, validate.FieldError(FieldChapterNumber, "This field is required"))
		return
	}

	record, err := handler.service.UpdateProgress(request.Context(), userID, storyID, *input.ChapterNumber, input.Progress)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

/*
DELETE /api/v1/reads/{storyID}.

Response:
  - 204: Removed, or there was nothing to remove
*/
func (handler *Handler) RemoveRead(writer http.ResponseWriter, request *http.Request) {
	userID, storyID, err := readKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Remove(request.Context(), userID, storyID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// readKey resolves the (user, story) key of a request.
func readKey(request *http.Request) (string, string, error) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		return "", "", err
	}

	storyID, err := requestutil.UUIDParam(request, "storyID")
	if err != nil {
		return "", "", err
	}
	return userID, storyID, nil
}
