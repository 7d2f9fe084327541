// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr carries client-facing failures from services to the HTTP layer.

An [AppError] pairs a machine-readable code with a message safe to show a
client; the code alone decides the HTTP status. Services branch on codes with
[Is] (the reading upsert retries on [CodeDuplicateKey]), and anything that is
not an AppError by the time it reaches a handler is reported as INTERNAL_ERROR.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeBelongsToMismatch = "BELONGS_TO_MISMATCH"
	CodeDuplicateKey      = "DUPLICATE_KEY"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeValidation        = "VALIDATION_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeNotFound:          http.StatusNotFound,
	CodeBelongsToMismatch: http.StatusConflict,
	CodeDuplicateKey:      http.StatusConflict,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeForbidden:         http.StatusForbidden,
	CodeValidation:        http.StatusBadRequest,
	CodeRateLimited:       http.StatusTooManyRequests,
	CodeInternal:          http.StatusInternalServerError,
}

// AppError is the error type every service returns for expected failures.
// Cause is logged server-side and never serialized.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"error"`
	HTTPStatus int          `json:"-"`
	Cause      error        `json:"-"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError is one failed input field of a VALIDATION_ERROR.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// New builds an AppError whose status follows from code. Unknown codes map to 500.
func New(code, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// NotFound reports a missing resource, e.g. NotFound("Story") is "Story not found".
func NotFound(resource string) *AppError {
	return New(CodeNotFound, resource+" not found")
}

// BelongsToMismatch reports a child addressed through a parent it does not
// belong to, such as a chapter under another story's URL.
func BelongsToMismatch(child, parent string) *AppError {
	return New(CodeBelongsToMismatch, fmt.Sprintf("%s does not belong to this %s", child, parent))
}

// DuplicateKey reports a unique-key collision on insert.
// Services treat it as a retry signal and only surface it once retries run out.
func DuplicateKey(resource string, cause error) *AppError {
	err := New(CodeDuplicateKey, resource+" already exists")
	err.Cause = cause
	return err
}

func Unauthorized(msg string) *AppError {
	return New(CodeUnauthorized, msg)
}

func Forbidden(msg string) *AppError {
	return New(CodeForbidden, msg)
}

// ValidationError reports bad input, optionally per field.
func ValidationError(msg string, details ...FieldError) *AppError {
	err := New(CodeValidation, msg)
	err.Details = details
	return err
}

func RateLimited(retryAfterSeconds int) *AppError {
	return New(CodeRateLimited, fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
}

// Internal wraps an unexpected failure behind a generic message.
func Internal(cause error) *AppError {
	err := New(CodeInternal, "An unexpected error occurred")
	err.Cause = cause
	return err
}

// IsAppError reports whether err's chain contains an [*AppError].
func IsAppError(err error) bool {
	return As(err) != nil
}

// As returns the first [*AppError] in err's chain, or nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Is reports whether err carries an [*AppError] with the given code.
func Is(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}
