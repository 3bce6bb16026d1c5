package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/yolosopher/rps-live/internal/api/apierr"
	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/services/token"
)

type contextKey string

const identityContextKey contextKey = "identity"

const (
	// RefreshCookieName is the http-only cookie carrying the refresh token
	RefreshCookieName = "refresh_token"

	// AccessTokenHeader is the response header carrying a silently rotated
	// access token; clients replace their stored token when they see it.
	AccessTokenHeader = "X-Access-Token"
)

// Auth creates authentication middleware. It verifies the bearer token and,
// when the refresh cookie is present, silently rotates aging credentials:
// the fresh access token comes back in a response header and the fresh
// refresh token in the cookie.
func Auth(tokens token.ServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := extractBearer(r)
			if access == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			identity, rotated, err := tokens.Handshake(r.Context(), access, extractRefresh(r))
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			if rotated != nil {
				w.Header().Set(AccessTokenHeader, rotated.AccessToken)
				SetRefreshCookie(w, rotated.RefreshToken)
			}

			ctx := context.WithValue(r.Context(), identityContextKey, &identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves an identity if credentials are present but lets
// anonymous requests through.
func OptionalAuth(tokens token.ServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if access := extractBearer(r); access != "" {
				if identity, rotated, err := tokens.Handshake(r.Context(), access, extractRefresh(r)); err == nil {
					if rotated != nil {
						w.Header().Set(AccessTokenHeader, rotated.AccessToken)
						SetRefreshCookie(w, rotated.RefreshToken)
					}
					ctx := context.WithValue(r.Context(), identityContextKey, &identity)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetRefreshCookie writes the http-only refresh cookie
func SetRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRefreshCookie expires the refresh cookie
func ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// extractBearer extracts the access token from the Authorization header
func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// extractRefresh extracts the refresh token from the cookie
func extractRefresh(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetIdentity returns the authenticated identity from the request context
func GetIdentity(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityContextKey).(*model.Identity)
	return identity
}

// MustGetIdentity returns the authenticated identity or panics
func MustGetIdentity(ctx context.Context) *model.Identity {
	identity := GetIdentity(ctx)
	if identity == nil {
		panic("no identity in context - auth middleware not applied?")
	}
	return identity
}
