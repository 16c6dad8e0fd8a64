package account

import (
	"context"
	"time"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/validators"
)

// Login authenticates email and password. The checks run in a fixed order:
// lookup, lock, password, disabled, inactive. An unexpired lock rejects the
// attempt before the password is looked at.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = validators.NormalizeEmail(email)

	v := validators.Violations{}
	if email == "" {
		v["email"] = "required"
	}
	if password == "" {
		v["password"] = "required"
	}
	if !v.Empty() {
		return nil, apperr.Invalid(v)
	}

	u, err := s.users.ByEmail(ctx, email, store.WithPassword())
	if err != nil {
		return nil, lookup(err, apperr.ErrWrongCredentials, "look up user")
	}

	ok, err := s.checkPassword(ctx, u, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrWrongCredentials
	}

	var notice *model.Notice

	switch {
	case u.AccountDisabled:
		u, err = s.users.Update(ctx, u.ID, store.NewPatch().
			With(model.FieldActive, true).
			With(model.FieldAccountDisabled, false).
			Without(model.FieldDisableAccountAt))
		if err != nil {
			return nil, lookup(err, apperr.ErrUserNotFound, "re-enable account")
		}

		notice = model.Success("Welcome back " + u.Firstname + ", your account has been re-enabled")
		s.ledger.Record(ctx, u.ID, notice)

	case !u.Active:
		return s.reissueActivation(ctx, u, s.now())
	}

	res, err := s.session(ctx, u)
	if err != nil {
		return nil, err
	}

	res.Notification = notice
	return res, nil
}

// reissueActivation handles a correct password on an account that was never
// activated. A pending token means the mail is still out there. An expired one
// is replaced and the new link mailed, or rolled back if the mail fails.
func (s *Service) reissueActivation(ctx context.Context, u *model.User, now time.Time) (*Result, error) {
	if u.ActivationOutstanding(now) {
		return nil, apperr.ErrActivationPending
	}

	tok, u, err := s.issueToken(ctx, u.ID, store.ActivationToken)
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, service.ActivationMail(u, s.links.Activation(tok.Plain))); err != nil {
		s.clearToken(ctx, u.ID, store.ActivationToken)
		return nil, apperr.Delivery(err, "Your activation link expired and a new one could not be sent. Please try again later")
	}

	notice := model.Success("Your activation link expired. A new one has been sent, please check your email")
	s.ledger.Record(ctx, u.ID, notice)

	return &Result{Notification: notice}, nil
}
