package account

import (
	"context"
	"strings"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/validators"
)

// UpdateMeInput carries the profile fields. Email and password are only
// present so the request can be refused when a client sends them.
type UpdateMeInput struct {
	Firstname       string
	Lastname        string
	Email           string
	Password        string
	PasswordConfirm string
}

func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "look up user")
	}
	return u, nil
}

func (s *Service) UpdateMe(ctx context.Context, userID string, in UpdateMeInput) (*Result, error) {
	if in.Email != "" || in.Password != "" || in.PasswordConfirm != "" {
		return nil, apperr.ErrPasswordRoute
	}

	p := store.NewPatch()
	if v := strings.TrimSpace(in.Firstname); v != "" {
		p.With(model.FieldFirstname, v)
	}
	if v := strings.TrimSpace(in.Lastname); v != "" {
		p.With(model.FieldLastname, v)
	}

	if p.Empty() {
		return nil, apperr.Invalid(validators.Violations{
			"firstname": "provide a firstname or a lastname",
			"lastname":  "provide a firstname or a lastname",
		})
	}

	u, err := s.users.Update(ctx, userID, p)
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "update user")
	}

	notice := model.Success("Your profile has been updated")
	s.ledger.Record(ctx, u.ID, notice)

	return &Result{User: u, Notification: notice}, nil
}

// DeleteMe removes the caller's account and everything it owns after
// checking the password once more
func (s *Service) DeleteMe(ctx context.Context, userID, password string) error {
	if password == "" {
		return apperr.Invalid(validators.Violations{"password": "required"})
	}

	u, err := s.users.ByID(ctx, userID, store.WithPassword())
	if err != nil {
		return lookup(err, apperr.ErrUserNotFound, "look up user")
	}

	ok, err := s.checkPassword(ctx, u, password)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrWrongPassword
	}

	return s.cascade(ctx, u.ID)
}
