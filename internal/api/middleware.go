package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"medication-tracker/internal/models"
	"medication-tracker/internal/storage"
)

type ctxKey string

const (
	callerKey ctxKey = "caller"
	userKey   ctxKey = "user"

	// UserHeader carries the caller's user id.
	UserHeader = "X-User-ID"
)

// AuthContext stores the X-User-ID header in the request context. It does
// not reject anything; routes decide whether they need a caller.
func AuthContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := strings.TrimSpace(r.Header.Get(UserHeader)); uid != "" {
			r = r.WithContext(context.WithValue(r.Context(), callerKey, uid))
		}
		next.ServeHTTP(w, r)
	})
}

func Caller(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(callerKey).(string)
	return uid, ok && uid != ""
}

// requireSelf lets a caller touch only their own {userID} namespace.
func requireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := Caller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if uid != chi.URLParam(r, "userID") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loadUser puts the stored user into the context, answering 404 when the
// profile was never created.
func (s *server) loadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.store.GetUser(r.Context(), chi.URLParam(r, "userID"))
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.internal(w, "load user", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
