// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/ctxutil"
	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Unknown fields are rejected so typos in optional fields (e.g. "progres")
are not silently treated as omitted.

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (UUID) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
UUIDParam retrieves a named URL parameter that must be a UUID.

Returns:
  - string: The identifier
  - error: Validation error naming the parameter when it is malformed
*/
func UUIDParam(request *http.Request, name string) (string, error) {
	value := chi.URLParam(request, name)
	if err := (&validate.Validator{}).UUID(name, value).Err(); err != nil {
		return "", err
	}
	// PostgreSQL renders UUIDs in lowercase; SQLite compares the stored text.
	return strings.ToLower(value), nil
}

/*
IntParam retrieves a named URL parameter and parses it as an integer.

Returns:
  - int: Parsed value
  - error: Validation error naming the parameter when it is not an integer
*/
func IntParam(request *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(request, name))
	if err != nil {
		return 0, validate.FieldError(name, "Must be an integer")
	}
	return value, nil
}

/*
RequiredUserID returns the User ID of the currently logged-in user.

Returns:
  - string: User UUID
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredUserID(request *http.Request) (string, error) {

	// Get user claims
	claims := ctxutil.GetAuthUser(request.Context())

	// If the user is not authenticated, return an error
	if claims == nil {
		return "", apperr.Unauthorized("Authentication required")
	}

	return claims.UserID, nil
}

// RequiredActor returns the authenticated caller as a [sec.Actor], or
// apperr.Unauthorized for anonymous requests.
func RequiredActor(request *http.Request) (sec.Actor, error) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		return sec.Actor{}, apperr.Unauthorized("Authentication required")
	}
	return sec.Actor{UserID: claims.UserID, Role: sec.UserRole(claims.Role)}, nil
}
