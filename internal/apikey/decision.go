package apikey

import (
	"context"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"
)

// AdminDecision approves or denies a key of userID. An approved key stays
// usable even when the user cannot be mailed, the admins are alerted instead.
// A denied key is removed.
func (s *Service) AdminDecision(ctx context.Context, userID, keyID string, approve bool) (*Result, error) {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, apperr.ErrUserNotFound, "look up user")
	}

	k, err := s.find(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}

	if approve {
		return s.approve(ctx, u, k)
	}
	return s.deny(ctx, u, k)
}

func (s *Service) approve(ctx context.Context, u *model.User, k *model.APIKey) (*Result, error) {
	if k.Active {
		return nil, ErrKeyActive
	}

	value := security.CreateKey()

	k, err := s.keys.UpdateKey(ctx, u.ID, k.ID, store.NewPatch().
		With(model.FieldAPIKey, value).
		With(model.FieldAPIKeyActive, true).
		With(model.FieldAPIKeyExpire, s.now().Add(KeyTTL)))
	if err != nil {
		return nil, lookup(err, apperr.ErrAPIKeyNotFound, "activate api key")
	}

	userNotice := model.Success("Your " + k.APIName + " key has been activated")
	adminNotice := model.Success("The " + k.APIName + " key of " + u.Email + " has been activated")

	if err := s.send(ctx, service.APIKeyApprovedMail(u, k.APIName, value)); err != nil {
		userNotice = model.Fail("Your " + k.APIName + " key has been activated but the email with the key could not be sent. You can find it in your account")
		adminNotice = model.Fail("The " + k.APIName + " key of " + u.Email + " has been activated but the user could not be emailed")
		s.ledger.Alert(ctx, "Approval email for the "+k.APIName+" key of "+u.Email+" could not be sent")
	}

	s.ledger.Record(ctx, u.ID, userNotice)
	return &Result{Key: k, Notification: adminNotice}, nil
}

func (s *Service) deny(ctx context.Context, u *model.User, k *model.APIKey) (*Result, error) {
	if _, err := s.keys.Pull(ctx, u.ID, k.ID); err != nil {
		return nil, lookup(err, apperr.ErrAPIKeyNotFound, "delete api key")
	}

	adminNotice := model.Success("The " + k.APIName + " key request of " + u.Email + " has been denied")

	if err := s.send(ctx, service.APIKeyDeniedMail(u, k.APIName)); err != nil {
		adminNotice = model.Fail("The " + k.APIName + " key request of " + u.Email + " has been denied but the user could not be emailed")
		s.ledger.Alert(ctx, "Denial email for the "+k.APIName+" key of "+u.Email+" could not be sent")
	}

	s.ledger.Record(ctx, u.ID, model.Fail("Your request for a "+k.APIName+" key has been denied"))
	return &Result{Notification: adminNotice}, nil
}
