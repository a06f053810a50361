package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/observability"
	"github.com/kjstillabower/cityweather/internal/store"
)

const unitsCookie = "units"

// Authenticator verifies a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*store.User, error)
}

type userKey struct{}

func withUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(userKey{}).(*store.User)
	return u, ok && u != nil
}

// UnitsMiddleware puts the caller's unit preference, read from the units
// cookie, into the request context. Missing or unknown values use def.
func UnitsMiddleware(def models.Units) mux.MiddlewareFunc {
	if _, ok := models.ParseUnits(string(def)); !ok {
		def = models.UnitsMetric
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			units := def
			if c, err := r.Cookie(unitsCookie); err == nil {
				if u, ok := models.ParseUnits(c.Value); ok {
					units = u
				}
			}
			next.ServeHTTP(w, r.WithContext(models.WithUnits(r.Context(), units)))
		})
	}
}

// BasicAuthMiddleware identifies the caller from HTTP Basic credentials.
// Requests without credentials continue anonymously; wrong credentials get 401.
func BasicAuthMiddleware(auth Authenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || auth == nil {
				next.ServeHTTP(w, r)
				return
			}
			user, err := auth.Authenticate(r.Context(), username, password)
			if err != nil {
				if errors.Is(err, store.ErrInvalidCredentials) {
					writeUnauthorized(w, r, "Invalid username or password")
					return
				}
				observability.LoggerFromContext(r.Context(), nil).Error("authentication failed", zap.Error(err))
				writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Unable to verify credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// requireUser writes 401 and returns false for anonymous callers.
func requireUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, r, "Login required")
		return nil, false
	}
	return user, true
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="cityweather", charset="UTF-8"`)
	writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", message)
}
