// Package session carries the authenticated caller's identity as an
// explicit value. Handlers receive it through the request context; nothing
// in the process holds a "current user" global.
package session

import (
	"context"
	"errors"
	"strings"
)

// ErrUnauthenticated reports a missing or unusable credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session identifies the caller for the duration of one request.
type Session struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the caller may use the admin console endpoints.
func (s Session) IsAdmin() bool { return s.Role == "admin" }

// Resolver turns an access token into a Session.
type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (Session, error)
}

// FromBearer extracts the token from an Authorization header value.
// Returns false when the header is absent or not a bearer credential.
func FromBearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type contextKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
