// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/talehub/internal/api"
	"github.com/taibuivan/talehub/internal/app"
	"github.com/taibuivan/talehub/internal/core/chapter"
	"github.com/taibuivan/talehub/internal/core/story"
	"github.com/taibuivan/talehub/internal/library/reading"
	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/config"
	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/platform/testsupport"
	"github.com/taibuivan/talehub/internal/users/account"
	"github.com/taibuivan/talehub/pkg/uuid"
)

// staticVerifier accepts tokens of the form "<role>:<userID>".
type staticVerifier struct{}

func (staticVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	role, userID, ok := strings.Cut(token, ":")
	if !ok {
		return nil, errors.New("malformed token")
	}
	return &sec.AuthClaims{UserID: userID, Role: role}, nil
}

type testServer struct {
	handler  http.Handler
	services *app.Services
}

func newTestServer(t *testing.T, checks ...api.HealthCheck) *testServer {
	t.Helper()

	logger := testsupport.Logger()
	backend := app.SQLiteBackend(testsupport.NewSQLite(t))
	services := app.NewServices(backend, nil, logger)

	if len(checks) == 0 {
		checks = []api.HealthCheck{{Name: "sqlite", Check: backend.Ping}}
	}
	liveness, readiness := api.NewHealthHandlers(logger, checks...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{Environment: "test", DatabaseDriver: config.DriverSQLite}
	router := api.NewRouter(ctx, cfg, logger, staticVerifier{}, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   account.NewHandler(services.Accounts),
		Story:     story.NewHandler(services.Stories),
		Chapter:   chapter.NewHandler(services.Chapters),
		Reading:   reading.NewHandler(services.Reading),
	})

	return &testServer{handler: router, services: services}
}

func (server *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, request)

	var payload map[string]any
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	}
	return recorder.Code, payload
}

func (server *testServer) provision(t *testing.T, username string, role sec.UserRole) string {
	t.Helper()

	user, err := server.services.Accounts.Provision(context.Background(), account.ProvisionInput{
		ID:       uuid.New(),
		Username: username,
		Role:     role,
	})
	require.NoError(t, err)
	return string(role) + ":" + user.ID
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	code, payload := server.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", payload["data"].(map[string]any)["status"])

	code, payload = server.do(t, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", payload["data"].(map[string]any)["status"])
}

func TestReadiness_Degraded(t *testing.T) {
	server := newTestServer(t,
		api.HealthCheck{Name: "postgres", Check: func(context.Context) error { return errors.New("connection refused") }},
		api.HealthCheck{Name: "redis"},
	)

	code, payload := server.do(t, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	data := payload["data"].(map[string]any)
	assert.Equal(t, "degraded", data["status"])
	checks := data["checks"].([]any)
	require.Len(t, checks, 1, "nil checks are skipped")
	assert.Equal(t, false, checks[0].(map[string]any)["ok"])
}

func TestStoryChapterReadingFlow(t *testing.T) {
	server := newTestServer(t)
	author := server.provision(t, "writer", sec.RoleAuthor)
	reader := server.provision(t, "reader", sec.RoleMember)

	code, payload := server.do(t, http.MethodPost, "/api/v1/stories", author, `{"title": "The Long Road", "status": "published"}`)
	require.Equal(t, http.StatusCreated, code)
	storyID := payload["data"].(map[string]any)["id"].(string)

	chapters := make([]string, 0, 5)
	for i := 1; i <= 5; i++ {
		body := fmt.Sprintf(`{"title": "Part %d", "content": "..."}`, i)
		code, payload = server.do(t, http.MethodPost, "/api/v1/stories/"+storyID+"/chapters", author, body)
		require.Equal(t, http.StatusCreated, code)
		data := payload["data"].(map[string]any)
		assert.EqualValues(t, i, data["number"])
		chapters = append(chapters, data["id"].(string))
	}

	code, _ = server.do(t, http.MethodDelete, "/api/v1/stories/"+storyID+"/chapters/"+chapters[2], author, "")
	require.Equal(t, http.StatusNoContent, code)

	code, payload = server.do(t, http.MethodGet, "/api/v1/stories/"+storyID+"/chapters/number/3", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, chapters[3], payload["data"].(map[string]any)["id"])

	code, payload = server.do(t, http.MethodPut, "/api/v1/reads/"+storyID+"/progress", reader, `{"chapter_number": 4, "progress": 10}`)
	require.Equal(t, http.StatusOK, code)
	record := payload["data"].(map[string]any)
	assert.Equal(t, "READING", record["status"])
	assert.Equal(t, chapters[4], record["last_chapter_read_id"])

	code, payload = server.do(t, http.MethodGet, "/api/v1/me", reader, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reader", payload["data"].(map[string]any)["username"])
}

func TestOwnership(t *testing.T) {
	server := newTestServer(t)
	owner := server.provision(t, "owner", sec.RoleAuthor)
	rival := server.provision(t, "rival", sec.RoleAuthor)
	moderator := server.provision(t, "mod", sec.RoleModerator)
	_, ownerID, _ := strings.Cut(owner, ":")

	code, payload := server.do(t, http.MethodPost, "/api/v1/stories", owner, `{"title": "Mine"}`)
	require.Equal(t, http.StatusCreated, code)
	created := payload["data"].(map[string]any)
	storyID := created["id"].(string)
	assert.Equal(t, ownerID, created["author_id"])

	chaptersPath := "/api/v1/stories/" + storyID + "/chapters"
	code, payload = server.do(t, http.MethodPost, chaptersPath, owner, `{"title": "One"}`)
	require.Equal(t, http.StatusCreated, code)
	chapterID := payload["data"].(map[string]any)["id"].(string)

	code, _ = server.do(t, http.MethodPost, chaptersPath, rival, `{"title": "Graffiti"}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = server.do(t, http.MethodPut, chaptersPath+"/"+chapterID, rival, `{"title": "Graffiti"}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = server.do(t, http.MethodDelete, chaptersPath+"/"+chapterID, rival, "")
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = server.do(t, http.MethodDelete, "/api/v1/stories/"+storyID, rival, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, payload = server.do(t, http.MethodGet, "/api/v1/users/"+ownerID+"/stories", "", "")
	require.Equal(t, http.StatusOK, code)
	listed := payload["data"].(map[string]any)["items"].([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, storyID, listed[0].(map[string]any)["id"])

	code, payload = server.do(t, http.MethodGet, "/api/v1/users/"+ownerID, "", "")
	require.Equal(t, http.StatusOK, code, "account lookup still routes past the story listing")
	assert.Equal(t, "owner", payload["data"].(map[string]any)["username"])

	code, _ = server.do(t, http.MethodDelete, chaptersPath+"/"+chapterID, moderator, "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = server.do(t, http.MethodDelete, "/api/v1/stories/"+storyID, owner, "")
	assert.Equal(t, http.StatusNoContent, code)
}

func TestAuthorization(t *testing.T) {
	server := newTestServer(t)
	member := server.provision(t, "member", sec.RoleMember)

	code, _ := server.do(t, http.MethodPost, "/api/v1/stories", "", `{"title": "x"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = server.do(t, http.MethodPost, "/api/v1/stories", member, `{"title": "x"}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = server.do(t, http.MethodGet, "/api/v1/reads", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = server.do(t, http.MethodGet, "/api/v1/reads", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUnknownRoutes(t *testing.T) {
	server := newTestServer(t)

	status, body := server.do(t, http.MethodGet, "/api/v1/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperr.CodeNotFound, body["code"])

	status, body = server.do(t, http.MethodPatch, "/health", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body["code"])
}
