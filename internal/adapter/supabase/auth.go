package supabase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/plazafinder/mall-radar/internal/session"
)

// SessionResolver implements session.Resolver against the auth endpoint,
// then looks up the app role from the profiles table.
type SessionResolver struct {
	client   *Client
	profiles *ProfileRepository
	logger   *slog.Logger
}

func NewSessionResolver(client *Client, profiles *ProfileRepository, logger *slog.Logger) *SessionResolver {
	return &SessionResolver{client: client, profiles: profiles, logger: logger}
}

// Resolve validates the access token and returns the caller's session.
// Invalid or expired tokens map to session.ErrUnauthenticated.
func (r *SessionResolver) Resolve(ctx context.Context, accessToken string) (session.Session, error) {
	user, err := r.client.GetAuthUser(ctx, accessToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return session.Session{}, fmt.Errorf("%w: %v", session.ErrUnauthenticated, err)
		}
		return session.Session{}, fmt.Errorf("resolve session: %w", err)
	}

	role, err := r.profiles.GetRole(ctx, user.ID)
	if err != nil {
		// A missing role must not lock the user out of non-admin routes.
		r.logger.Warn("role lookup failed, defaulting to user", "user_id", user.ID, "error", err)
		role = "user"
	}

	return session.Session{UserID: user.ID, Email: user.Email, Role: role}, nil
}
