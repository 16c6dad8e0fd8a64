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

// ForgotPassword mails a reset link. The token is worthless if the mail
// never arrives, so a failed send clears it again.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*Result, error) {
	email = validators.NormalizeEmail(email)
	if err := validators.EmailValidator(email); err != nil {
		return nil, apperr.Invalid(map[string]string{"email": err.Error()})
	}

	u, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "look up user")
	}

	tok, u, err := s.issueToken(ctx, u.ID, store.PasswordResetToken)
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, service.PasswordResetMail(u, s.links.PasswordReset(tok.Plain))); err != nil {
		s.clearToken(ctx, u.ID, store.PasswordResetToken)
		return nil, apperr.Delivery(err, "The reset email could not be sent. Please try again later")
	}

	notice := model.Success("A password reset link has been sent to your email")
	s.ledger.Record(ctx, u.ID, notice)

	return &Result{Notification: notice}, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) (*Result, error) {
	if err := validators.TokenValidator(token); err != nil {
		return nil, apperr.Invalid(map[string]string{"token": err.Error()})
	}
	if err := passwordPair(password, confirm); err != nil {
		return nil, err
	}

	u, err := s.users.ByToken(ctx, store.TokenLookup{
		Kind:   store.PasswordResetToken,
		Hashed: security.HashToken(token),
		Now:    s.now(),
	})
	if err != nil {
		return nil, lookup(err, apperr.ErrTokenInvalid, "look up token")
	}

	return s.setPassword(ctx, u.ID, password, store.NewPatch().
		Without(model.FieldPasswordResetToken, model.FieldPasswordResetExpire))
}

// UpdatePassword changes the password of a signed-in user
func (s *Service) UpdatePassword(ctx context.Context, userID, current, password, confirm string) (*Result, error) {
	v := validators.Violations{}
	if current == "" {
		v["passwordCurrent"] = "required"
	}
	if !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	if err := passwordPair(password, confirm); err != nil {
		return nil, err
	}

	u, err := s.users.ByID(ctx, userID, store.WithPassword())
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "look up user")
	}

	ok, err := s.checkPassword(ctx, u, current)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrWrongPassword
	}

	return s.setPassword(ctx, u.ID, password, store.NewPatch())
}

// setPassword hashes and stores password together with p, then issues a new
// session and mails a confirmation. Older sessions stop working.
func (s *Service) setPassword(ctx context.Context, userID, password string, p *store.Patch) (*Result, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to hash password")
	}

	u, err := s.users.Update(ctx, userID, p.
		With(model.FieldPassword, hash).
		With(model.FieldPasswordChangeAt, s.changeStamp()))
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "update password")
	}

	res, err := s.session(ctx, u)
	if err != nil {
		return nil, err
	}

	res.Notification = s.confirm(ctx, u, service.PasswordChangedMail(u),
		"Your password has been changed",
		"Your password has been changed but the confirmation email could not be sent")

	return res, nil
}

func passwordPair(password, confirm string) error {
	v := validators.Violations{}

	v.Check("password", validators.PasswordValidator(password))
	if password != confirm {
		v["passwordConfirm"] = validators.ErrPasswordMismatch.Error()
	}

	if !v.Empty() {
		return apperr.Invalid(v)
	}
	return nil
}
