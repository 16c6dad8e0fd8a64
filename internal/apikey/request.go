package apikey

import (
	"context"
	"errors"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/validators"

	"go.uber.org/zap"
)

// RequestCreation adds an inactive placeholder for apiName and asks the
// admins to review it. A placeholder no admin heard about is useless, so it is
// removed again when the mail cannot be sent.
func (s *Service) RequestCreation(ctx context.Context, u *model.User, apiName string) (*Result, error) {
	if err := validators.APINameValidator(apiName); err != nil {
		return nil, apperr.Invalid(validators.Violations{"apiName": err.Error()})
	}

	set, err := s.keys.ByUser(ctx, u.ID)
	switch {
	case err == nil && set.Has(apiName):
		return nil, apperr.ErrDuplicateKey
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Internalf(err, "Failed to fetch api keys")
	}

	now := s.now()
	k := &model.APIKey{
		APIName:   apiName,
		ExpiresAt: now.Add(KeyTTL),
		Active:    false,
		CreatedAt: now,
	}

	// The store settles the race between two identical requests
	if err := s.keys.Push(ctx, u.ID, k); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrDuplicateKey
		}
		return nil, apperr.Internalf(err, "Failed to save api key request")
	}

	_, admins, err := s.users.AdminEmails(ctx)
	if err != nil {
		s.pull(ctx, u.ID, k.ID)
		return nil, apperr.Internalf(err, "Failed to list admins")
	}

	if len(admins) == 0 {
		s.pull(ctx, u.ID, k.ID)
		return nil, apperr.Delivery(ErrNoAdminToNotify, "Your request could not be forwarded to an administrator. Please try again later")
	}

	if err := s.send(ctx, service.APIKeyRequestMail(admins, u, apiName)); err != nil {
		s.pull(ctx, u.ID, k.ID)
		return nil, apperr.Delivery(err, "Your request could not be forwarded to an administrator. Please try again later")
	}

	if _, err := s.ledger.BroadcastToAdmins(ctx, model.NoticeSuccess, u.FullName()+" requested a key for "+apiName); err != nil {
		zap.L().Error("Failed to notify admins", zap.Error(err), zap.String("userID", u.ID))
	}

	notice := model.Success("Your request for a " + apiName + " key has been sent to an administrator")
	s.ledger.Record(ctx, u.ID, notice)

	return &Result{Key: k, Notification: notice}, nil
}
