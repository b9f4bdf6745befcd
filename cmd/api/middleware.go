package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mcclellann/backoffice/pkg/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// adminWritesMiddleware lets only admins edit or delete.
func (s *Server) adminWritesMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut || r.Method == http.MethodDelete {
			if c := claimsFrom(r.Context()); c == nil || !c.IsAdmin() {
				writeMessage(w, http.StatusForbidden, "admin role required")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// idempotencyMiddleware refuses a POST whose Idempotency-Key was already
// used by the same user on the same path.
func (s *Server) idempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if r.Method != http.MethodPost || key == "" || s.idem == nil {
			next.ServeHTTP(w, r)
			return
		}

		user := ""
		if c := claimsFrom(r.Context()); c != nil {
			user = c.UserID
		}
		fresh, err := s.idem.MarkProcessed(r.Context(), user+":"+r.URL.Path+":"+key, s.idemTTL)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !fresh {
			s.log.Warn().Str("path", r.URL.Path).Str("key", key).Msg("duplicate submit rejected")
			writeMessage(w, http.StatusConflict, "duplicate request")
			return
		}
		next.ServeHTTP(w, r)
	})
}
