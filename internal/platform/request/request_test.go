// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/talehub/internal/platform/request"
	"github.com/taibuivan/talehub/internal/platform/sec"
)

func TestRequiredActor(t *testing.T) {
	anonymous := httptest.NewRequest(http.MethodDelete, "/api/v1/stories/x", nil)
	_, err := requestutil.RequiredActor(anonymous)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	claims := &sec.AuthClaims{UserID: "0190c7b2-7c4e-7000-8000-000000000001", Role: string(sec.RoleAuthor)}
	signedIn := anonymous.WithContext(ctxutil.WithAuthUser(anonymous.Context(), claims))

	actor, err := requestutil.RequiredActor(signedIn)
	require.NoError(t, err)
	assert.Equal(t, sec.Actor{UserID: claims.UserID, Role: sec.RoleAuthor}, actor)
}
