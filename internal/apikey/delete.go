package apikey

import (
	"context"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
)

// DeleteKey removes a key. Regular users always act on their own keys, only
// admins may name another owner.
func (s *Service) DeleteKey(ctx context.Context, requester *model.User, ownerID, keyID string) (*Result, error) {
	owner := requester.ID
	if requester.IsAdmin() && ownerID != "" {
		owner = ownerID
	}

	k, err := s.find(ctx, owner, keyID)
	if err != nil {
		return nil, err
	}

	if _, err := s.keys.Pull(ctx, owner, k.ID); err != nil {
		return nil, lookup(err, apperr.ErrAPIKeyNotFound, "delete api key")
	}

	notice := model.Success("The " + k.APIName + " key has been deleted")
	s.ledger.Record(ctx, requester.ID, notice)

	if owner != requester.ID {
		s.ledger.Record(ctx, owner, model.Fail("Your "+k.APIName+" key has been deleted by an administrator"))
	}

	return &Result{Notification: notice}, nil
}
