package account

import (
	"context"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"
	"bitwise74/account-api/validators"
)

// ConfirmActivation activates the account holding token. The password is
// checked again so a leaked link alone is not enough.
func (s *Service) ConfirmActivation(ctx context.Context, email, password, token string) (*Result, error) {
	if err := validators.TokenValidator(token); err != nil {
		return nil, apperr.Invalid(map[string]string{"token": err.Error()})
	}

	u, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	u, err = s.users.ByToken(ctx, store.TokenLookup{
		Kind:   store.ActivationToken,
		Hashed: security.HashToken(token),
		Email:  u.Email,
		Now:    s.now(),
	})
	if err != nil {
		return nil, lookup(err, apperr.ErrConfirmationFailed, "look up token")
	}

	u, err = s.users.Update(ctx, u.ID, store.NewPatch().
		With(model.FieldActive, true).
		Without(model.FieldActivationAccountToken, model.FieldActivationAccountTokenExpire))
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "activate account")
	}

	res, err := s.session(ctx, u)
	if err != nil {
		return nil, err
	}

	res.Notification = s.confirm(ctx, u, service.WelcomeMail(u),
		"Your account is now active",
		"Your account is now active but the confirmation email could not be sent")

	return res, nil
}

// Disable is the self-service switch off. Logging in again undoes it.
func (s *Service) Disable(ctx context.Context, userID string) (*Result, error) {
	u, err := s.users.Update(ctx, userID, store.NewPatch().
		With(model.FieldActive, false).
		With(model.FieldAccountDisabled, true).
		With(model.FieldDisableAccountAt, s.now()))
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "disable account")
	}

	notice := model.Success("Your account has been disabled. Log in again to re-enable it")
	s.ledger.Record(ctx, u.ID, notice)

	return &Result{User: u, Notification: notice}, nil
}
