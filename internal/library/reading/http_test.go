// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/talehub/internal/library/reading"
	"github.com/taibuivan/talehub/internal/platform/ctxutil"
	"github.com/taibuivan/talehub/internal/platform/sec"
)

// newRouter mounts the reading routes behind a fake authenticator for userID.
func newRouter(service *reading.Service, userID string) http.Handler {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if userID != "" {
				claims := &sec.AuthClaims{UserID: userID, Role: string(sec.RoleMember)}
				request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
			}
			next.ServeHTTP(writer, request)
		})
	})
	reading.NewHandler(service).RegisterRoutes(router)
	return router
}

func do(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	var payload map[string]any
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	}
	return recorder, payload
}

func TestHandler_ProgressFlow(t *testing.T) {
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 3)
	router := newRouter(f.service, userID)

	recorder, payload := do(t, router, http.MethodPut, "/reads/"+storyID+"/progress", `{"chapter_number": 2, "progress": 40}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "READING", data["status"])
	assert.EqualValues(t, 2, data["current_chapter"])
	assert.EqualValues(t, 40, data["progress"])

	recorder, payload = do(t, router, http.MethodPut, "/reads/"+storyID+"/status", `{"status": "COMPLETED"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "COMPLETED", payload["data"].(map[string]any)["status"])

	recorder, payload = do(t, router, http.MethodGet, "/reads?status=COMPLETED", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.EqualValues(t, 1, payload["data"].(map[string]any)["total"])

	recorder, _ = do(t, router, http.MethodDelete, "/reads/"+storyID, "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder, payload = do(t, router, http.MethodGet, "/reads/"+storyID, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, payload["data"])
}

func TestHandler_Errors(t *testing.T) {
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 1)
	router := newRouter(f.service, userID)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing_chapter_number", http.MethodPut, "/reads/" + storyID + "/progress", `{"progress": 10}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown_field", http.MethodPut, "/reads/" + storyID + "/progress", `{"chapter_number": 1, "progres": 10}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad_status", http.MethodPut, "/reads/" + storyID + "/status", `{"status": "DROPPED"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed_story_id", http.MethodGet, "/reads/not-a-uuid", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown_story", http.MethodPut, "/reads/" + unknownID + "/status", `{"status": "LIKED"}`, http.StatusNotFound, "NOT_FOUND"},
		{"bad_limit", http.MethodGet, "/reads/recent?limit=ten", "", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder, payload := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, tt.code, payload["code"])
		})
	}
}

func TestHandler_RequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f.service, "")

	recorder, payload := do(t, router, http.MethodGet, "/reads", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "UNAUTHORIZED", payload["code"])
}
