// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/constants"
	"github.com/taibuivan/talehub/internal/platform/ctxutil"
	"github.com/taibuivan/talehub/internal/platform/respond"
)

// # Rate Limiting

// RateLimitPolicy is one token bucket shape. Zero fields fall back to defaults.
type RateLimitPolicy struct {
	RPS   float64
	Burst int
}

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per caller and request class.
//
// Authenticated callers are keyed by user ID, anonymous ones by IP. Writes
// (POST, PUT, DELETE) draw from a separate, smaller bucket because every
// chapter mutation holds its story's write lock.
type RateLimiter struct {
	read  RateLimitPolicy
	write RateLimitPolicy
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*rateLimitClient
}

// NewRateLimiter builds a limiter and sweeps idle callers until ctx is done.
func NewRateLimiter(ctx context.Context, read, write RateLimitPolicy) *RateLimiter {
	limiter := newRateLimiter(read, write, time.Now)

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				limiter.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	return limiter
}

func newRateLimiter(read, write RateLimitPolicy, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		read:    read.withDefaults(constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst),
		write:   write.withDefaults(constants.DefaultWriteRateLimitRPS, constants.DefaultWriteRateLimitBurst),
		now:     now,
		clients: make(map[string]*rateLimitClient),
	}
}

func (policy RateLimitPolicy) withDefaults(rps float64, burst int) RateLimitPolicy {
	if policy.RPS <= 0 {
		policy.RPS = rps
	}
	if policy.Burst <= 0 {
		policy.Burst = burst
	}
	return policy
}

// retryAfter is the whole number of seconds until one token is back.
func (policy RateLimitPolicy) retryAfter() int {
	return int(math.Max(1, math.Ceil(1/policy.RPS)))
}

// Middleware rejects callers over budget with 429 and a Retry-After header.
// It must run after [Authenticate] to key by user.
func (limiter *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		key, policy := limiter.classify(request)

		if !limiter.allow(key, policy) {
			seconds := policy.retryAfter()
			writer.Header().Set("Retry-After", strconv.Itoa(seconds))
			respond.Error(writer, request, apperr.RateLimited(seconds))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

func (limiter *RateLimiter) classify(request *http.Request) (string, RateLimitPolicy) {
	key := "ip:" + RealIP(request)
	if claims := ctxutil.GetAuthUser(request.Context()); claims != nil {
		key = "user:" + claims.UserID
	}

	switch request.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return key + ":write", limiter.write
	}
	return key + ":read", limiter.read
}

func (limiter *RateLimiter) allow(key string, policy RateLimitPolicy) bool {
	now := limiter.now()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	client, found := limiter.clients[key]
	if !found {
		client = &rateLimitClient{limiter: rate.NewLimiter(rate.Limit(policy.RPS), policy.Burst)}
		limiter.clients[key] = client
	}
	client.lastSeen = now

	return client.limiter.AllowN(now, 1)
}

// sweep forgets callers idle for longer than the client TTL.
func (limiter *RateLimiter) sweep() {
	now := limiter.now()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for key, client := range limiter.clients {
		if now.Sub(client.lastSeen) > constants.RateLimitClientTTL {
			delete(limiter.clients, key)
		}
	}
}
