package account

import (
	"context"
	"errors"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/pkg/security"
)

// Authenticate resolves a session token to its user. Tokens of deleted users
// and disabled accounts are rejected, as are tokens issued before the last
// password or email change.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.sessions.Parse(ctx, token)
	if errors.Is(err, security.ErrInvalidSession) {
		return nil, apperr.Wrap(err, apperr.Unauthorized, apperr.ErrUnauthenticated.Code, apperr.ErrUnauthenticated.Message)
	}
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to verify session")
	}

	u, err := s.users.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, lookup(err, apperr.ErrUnauthenticated, "look up session user")
	}

	if u.AccountDisabled {
		return nil, apperr.ErrUnauthenticated
	}

	if u.ChangedAfter(claims.IssuedAt.Time) {
		return nil, apperr.ErrSessionStale
	}

	return u, nil
}
