// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/talehub/internal/platform/request"
	"github.com/taibuivan/talehub/internal/platform/respond"
)

// Handler implements the HTTP layer for account lookups.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/me", handler.getMe)
	router.Get("/users/{userID}", handler.getUser)

	return router
}

/*
GET /api/v1/me.

Description: Returns the local account of the authenticated user.

Response:
  - 200: User
  - 401: Authentication required
  - 404: The identity has not been provisioned here yet
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
GET /api/v1/users/{userID}.

Response:
  - 200: User
  - 404: Unknown user
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.UUIDParam(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
