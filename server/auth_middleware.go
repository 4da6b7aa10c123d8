package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/sessions"
	"github.com/jrsteele09/timetomeet/token"
	"github.com/jrsteele09/timetomeet/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the identity claims of the verified token
	ContextKeyClaims ContextKey = "claims"
	// ContextKeySession stores the caller's session record
	ContextKeySession ContextKey = "session"
)

const (
	authTokenParam        = "authToken"
	missingTokenMessage   = "AuthorizationToken Is Missing In Request"
	sessionMissingMessage = "Session Not Found, Please Login Again"
)

// bearerToken finds the token in the Authorization header, then the
// authToken header, then the authToken query parameter.
func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if t := r.Header.Get(authTokenParam); t != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(r.URL.Query().Get(authTokenParam))
}

// ClaimsFromContext returns the claims RequireAuth stored on the request
func ClaimsFromContext(ctx context.Context) (*token.IdentityClaims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.IdentityClaims)
	return claims, ok && claims != nil
}

// RequireAuth checks the bearer token against the caller's current session
// record, including the per-token secret. A token whose session has ended is
// unauthorized here, only logout reports it as not found.
func (s *Server) RequireAuth() middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeResponse(w, http.StatusUnauthorized, missingTokenMessage, nil)
				return
			}

			claims, record, err := s.sessions.Authenticate(r.Context(), raw)
			if err != nil {
				log.Info().Err(err).Str("path", r.URL.Path).Msg("Rejected bearer token")
				if errors.Is(err, apperrors.ErrNoActiveSession) {
					writeResponse(w, http.StatusUnauthorized, sessionMissingMessage, nil)
					return
				}
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			ctx = context.WithValue(ctx, ContextKeySession, record)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAdmin must be chained after RequireAuth. Both the token claims and
// the stored session must carry admin permission.
func (s *Server) RequireAdmin() middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !claims.IsAdmin() {
				writeError(w, apperrors.ErrForbidden)
				return
			}
			if record, ok := r.Context().Value(ContextKeySession).(*sessions.Record); ok && record.Permissions != users.PermissionAdmin {
				writeError(w, apperrors.ErrForbidden)
				return
			}
			next(w, r)
		}
	}
}
