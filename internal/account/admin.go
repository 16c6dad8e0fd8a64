package account

import (
	"context"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
)

func (s *Service) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to list users")
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.Me(ctx, userID)
}

// DeleteUser is the admin removal, cascading like DeleteMe
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.cascade(ctx, userID)
}
