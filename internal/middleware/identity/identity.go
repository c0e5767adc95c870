// Package identity resolves the acting user of a request. Authentication
// happens upstream; the proxy forwards the user id in a header.
package identity

import (
	"context"
	"net/http"
	"strings"
	"unicode"
)

type contextKey struct{}

const maxUserIDLength = 128

// Config selects where the user id comes from.
type Config struct {
	Header string
	// DevUser is used when Header is absent. Empty disables the fallback.
	DevUser string
}

// WithUserID stores id in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// UserID returns the user attached by Middleware, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Resolve reads the user id from r per cfg. ok is false when no usable id
// is present.
func Resolve(r *http.Request, cfg Config) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(cfg.Header))
	if id == "" {
		id = cfg.DevUser
	}
	if id == "" || len(id) > maxUserIDLength {
		return "", false
	}
	for _, c := range id {
		if unicode.IsControl(c) {
			return "", false
		}
	}
	return id, true
}

// Middleware attaches the user id to the request context. Requests without
// one are answered by onMissing, or a plain 401.
func Middleware(cfg Config, onMissing func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := Resolve(r, cfg)
			if !ok {
				if onMissing != nil {
					onMissing(w, r)
					return
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}
