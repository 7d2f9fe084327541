// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/ctxutil"
	"github.com/taibuivan/talehub/internal/platform/respond"
	"github.com/taibuivan/talehub/internal/platform/sec"
)

const bearerScheme = "bearer"

// TokenVerifier checks access tokens minted by the identity service.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// Authenticate attaches verified claims to the request context.
//
// A request without an Authorization header stays anonymous, as does every
// request when verifier is nil. A header that is present but malformed or
// carries a bad token is rejected with 401 rather than downgraded.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			header := request.Header.Get("Authorization")
			if header == "" || verifier == nil {
				next.ServeHTTP(writer, request)
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, bearerScheme) || token == "" || strings.Contains(token, " ") {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(writer, request.WithContext(ctxutil.WithAuthUser(request.Context(), claims)))
		})
	}
}

// RequireAuth rejects anonymous requests. Mount it after [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return RequireRole(sec.RoleMember)(next)
}

// RequireRole rejects anonymous requests with 401 and callers ranked below
// role with 403.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}
			if !sec.UserRole(claims.Role).AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
