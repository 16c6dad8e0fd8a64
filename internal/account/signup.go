package account

import (
	"context"
	"errors"
	"strings"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"
	"bitwise74/account-api/validators"
)

type SignupInput struct {
	Firstname       string
	Lastname        string
	Email           string
	Password        string
	PasswordConfirm string
}

func (in *SignupInput) validate() error {
	v := validators.Violations{}

	if strings.TrimSpace(in.Firstname) == "" {
		v["firstname"] = "required"
	}
	if strings.TrimSpace(in.Lastname) == "" {
		v["lastname"] = "required"
	}
	v.Check("email", validators.EmailValidator(in.Email))
	v.Check("password", validators.PasswordValidator(in.Password))
	if in.Password != in.PasswordConfirm {
		v["passwordConfirm"] = validators.ErrPasswordMismatch.Error()
	}

	if !v.Empty() {
		return apperr.Invalid(v)
	}
	return nil
}

// Signup creates an inactive account and mails its activation link. The
// account is kept when the mail fails: the caller gets a fail notice and the
// admins are alerted.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Result, error) {
	in.Email = validators.NormalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return nil, err
	}

	_, err := s.users.ByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperr.ErrDuplicateEmail
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internalf(err, "Failed to look up email")
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to hash password")
	}

	now := s.now()
	tok, err := security.GenerateResetToken(now)
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to generate token")
	}

	u := &model.User{
		Firstname:                    strings.TrimSpace(in.Firstname),
		Lastname:                     strings.TrimSpace(in.Lastname),
		Email:                        in.Email,
		Password:                     hash,
		Role:                         model.RoleUser,
		Active:                       false,
		ActivationAccountToken:       &tok.Hashed,
		ActivationAccountTokenExpire: &tok.ExpiresAt,
		CreatedAt:                    now,
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrDuplicateEmail
		}
		return nil, apperr.Internalf(err, "Failed to create user")
	}
	u.Password = ""

	notice := model.Success("Your account has been created. Please check your email to activate it")
	if err := s.send(ctx, service.ActivationMail(u, s.links.Activation(tok.Plain))); err != nil {
		notice = model.Fail("Your account has been created but the activation email could not be sent. Log in again in 10 minutes to receive a new link")
		s.ledger.Alert(ctx, "Activation email could not be sent to "+u.Email)
	}

	s.ledger.Record(ctx, u.ID, notice)
	return &Result{User: u, Notification: notice}, nil
}
