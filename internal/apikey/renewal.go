package apikey

import (
	"context"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"
	"bitwise74/account-api/validators"

	"go.uber.org/zap"
)

// RequestRenewal puts a renewal token on an active key and mails the
// confirmation link. A renewal nobody can confirm must not stay pending, so a
// failed send clears the token.
func (s *Service) RequestRenewal(ctx context.Context, u *model.User, keyID string) (*Result, error) {
	k, err := s.find(ctx, u.ID, keyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !k.Usable(now) {
		return nil, ErrNotRenewable
	}

	tok, err := security.GenerateResetToken(now)
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to generate token")
	}

	k, err = s.keys.UpdateKey(ctx, u.ID, k.ID, store.NewPatch().
		With(model.FieldRenewalToken, tok.Hashed).
		With(model.FieldRenewalTokenExpire, tok.ExpiresAt))
	if err != nil {
		return nil, lookup(err, apperr.ErrAPIKeyNotFound, "save renewal token")
	}

	if err := s.send(ctx, service.RenewalMail(u, k.APIName, s.links.Renewal(tok.Plain))); err != nil {
		if _, cerr := s.keys.UpdateKey(ctx, u.ID, k.ID, store.NewPatch().
			Without(model.FieldRenewalToken, model.FieldRenewalTokenExpire)); cerr != nil {
			zap.L().Error("Failed to roll back renewal token", zap.Error(cerr), zap.String("keyID", k.ID))
			s.ledger.Alert(ctx, "Renewal token of key "+k.ID+" could not be cleared")
		}

		return nil, apperr.Delivery(err, "The renewal email could not be sent. Please try again later")
	}

	notice := model.Success("A link to confirm the renewal of your " + k.APIName + " key has been sent to your email")
	s.ledger.Record(ctx, u.ID, notice)

	return &Result{Notification: notice}, nil
}

// ConfirmRenewal swaps the secret of the key holding token. The entry, its
// name and its id stay the same.
func (s *Service) ConfirmRenewal(ctx context.Context, email, password, token string) (*Result, error) {
	if err := validators.TokenValidator(token); err != nil {
		return nil, apperr.Invalid(validators.Violations{"token": err.Error()})
	}

	u, err := s.credentials.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := s.now()

	k, err := s.keys.ByRenewalToken(ctx, u.ID, security.HashToken(token), now)
	if err != nil {
		return nil, lookup(err, apperr.ErrConfirmationFailed, "look up renewal token")
	}

	value := security.CreateKey()

	k, err = s.keys.UpdateKey(ctx, u.ID, k.ID, store.NewPatch().
		With(model.FieldAPIKey, value).
		With(model.FieldAPIKeyExpire, now.Add(KeyTTL)).
		Without(model.FieldRenewalToken, model.FieldRenewalTokenExpire))
	if err != nil {
		return nil, lookup(err, apperr.ErrAPIKeyNotFound, "renew api key")
	}

	notice := model.Success("Your " + k.APIName + " key has been renewed. The new key has been sent to your email")
	if err := s.send(ctx, service.RenewedMail(u, k.APIName, value)); err != nil {
		notice = model.Fail("Your " + k.APIName + " key has been renewed but the email with the new key could not be sent. You can find it in your account")
		s.ledger.Alert(ctx, "Renewal email for the "+k.APIName+" key of "+u.Email+" could not be sent")
	}

	s.ledger.Record(ctx, u.ID, notice)
	return &Result{Key: k, Notification: notice}, nil
}
