// Package auth extracts the caller's tenancy scope from trusted gateway
// headers. Token verification happens upstream; this service only needs
// to know which organization, team and user a request acts for.
package auth

import (
	"context"
	"net/http"

	"github.com/fekuna/omnipos-count-service/pkg/httputil"
)

type ctxKey int

const (
	organizationKey ctxKey = iota
	teamKey
	userKey
)

const (
	HeaderOrganizationID = "X-Organization-Id"
	HeaderTeamID         = "X-Team-Id"
	HeaderUserID         = "X-User-Id"
)

// Middleware copies the scope headers into the request context. The
// organization header is mandatory for every route it guards.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := r.Header.Get(HeaderOrganizationID)
		if orgID == "" {
			httputil.RespondError(w, http.StatusUnauthorized, "missing organization header")
			return
		}

		ctx := context.WithValue(r.Context(), organizationKey, orgID)
		if teamID := r.Header.Get(HeaderTeamID); teamID != "" {
			ctx = context.WithValue(ctx, teamKey, teamID)
		}
		if userID := r.Header.Get(HeaderUserID); userID != "" {
			ctx = context.WithValue(ctx, userKey, userID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OrganizationID returns the caller's organization id, empty outside
// the middleware.
func OrganizationID(ctx context.Context) string {
	if val, ok := ctx.Value(organizationKey).(string); ok {
		return val
	}
	return ""
}

// TeamID returns the caller's team id, nil when the header was absent.
func TeamID(ctx context.Context) *string {
	if val, ok := ctx.Value(teamKey).(string); ok {
		return &val
	}
	return nil
}

// UserID returns the caller's user id, nil when the header was absent.
func UserID(ctx context.Context) *string {
	if val, ok := ctx.Value(userKey).(string); ok {
		return &val
	}
	return nil
}
