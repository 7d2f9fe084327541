// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes the JSON envelopes every API handler returns.
//
// Success bodies are {"data": ...}. Failures are {"error", "code", "details"}
// built from an [apperr.AppError]; any other error is reported as
// INTERNAL_ERROR with its cause kept out of the body.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/ctxutil"
)

const contentTypeJSON = "application/json; charset=utf-8"

// SuccessEnvelope wraps every successful payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// ListPage is the data payload of collection endpoints.
type ListPage[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// JSON writes payload with the given status.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", contentTypeJSON)
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

func Created(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusCreated, SuccessEnvelope{Data: data})
}

// List writes items as a [ListPage]. A nil slice is sent as [].
func List[T any](writer http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	OK(writer, ListPage[T]{Items: items, Total: len(items)})
}

func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// Error maps err to its HTTP status and envelope. Server-side failures are
// logged with the request ID; client errors are not.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	appError := apperr.As(err)
	if appError == nil {
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		ctx := request.Context()
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.String("method", request.Method),
			slog.String("path", request.URL.Path),
			slog.Any("cause", appError.Cause),
		)
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Error:   appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}
