package account

import (
	"context"
	"errors"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"
	"bitwise74/account-api/validators"
)

// ForgotEmail mails an email change link to the current address of a
// signed-in user. An undelivered token is cleared again.
func (s *Service) ForgotEmail(ctx context.Context, userID string) (*Result, error) {
	tok, u, err := s.issueToken(ctx, userID, store.EmailResetToken)
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, service.EmailResetMail(u, s.links.EmailReset(tok.Plain))); err != nil {
		s.clearToken(ctx, u.ID, store.EmailResetToken)
		return nil, apperr.Delivery(err, "The email change link could not be sent. Please try again later")
	}

	notice := model.Success("A link to change your email has been sent to your current address")
	s.ledger.Record(ctx, u.ID, notice)

	return &Result{Notification: notice}, nil
}

// ResetEmail moves the account holding token to newEmail
func (s *Service) ResetEmail(ctx context.Context, token, password, newEmail string) (*Result, error) {
	newEmail = validators.NormalizeEmail(newEmail)

	v := validators.Violations{}
	v.Check("token", validators.TokenValidator(token))
	v.Check("email", validators.EmailValidator(newEmail))
	if password == "" {
		v["password"] = "required"
	}
	if !v.Empty() {
		return nil, apperr.Invalid(v)
	}

	u, err := s.users.ByToken(ctx, store.TokenLookup{
		Kind:   store.EmailResetToken,
		Hashed: security.HashToken(token),
		Now:    s.now(),
	}, store.WithPassword())
	if err != nil {
		return nil, lookup(err, apperr.ErrConfirmationFailed, "look up token")
	}

	ok, err := s.checkPassword(ctx, u, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrConfirmationFailed
	}

	if newEmail == u.Email {
		return nil, apperr.Invalid(map[string]string{"email": "new email must differ from the current one"})
	}

	u, err = s.users.Update(ctx, u.ID, store.NewPatch().
		With(model.FieldEmail, newEmail).
		With(model.FieldEmailChangeAt, s.changeStamp()).
		Without(model.FieldEmailResetToken, model.FieldEmailResetExpire))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.ErrDuplicateEmail
	}
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "update email")
	}

	res, err := s.session(ctx, u)
	if err != nil {
		return nil, err
	}

	res.Notification = s.confirm(ctx, u, service.EmailChangedMail(u),
		"Your email has been changed",
		"Your email has been changed but the confirmation email could not be sent")

	return res, nil
}
