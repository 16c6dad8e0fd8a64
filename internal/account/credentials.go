package account

import (
	"context"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/validators"

	"go.uber.org/zap"
)

// checkPassword is the only place a password is compared. An unexpired lock
// refuses the attempt before the hash is looked at, an expired one is
// cleared. A mismatch counts towards the lockout and yields (false, nil). A
// match resets the failure counter.
func (s *Service) checkPassword(ctx context.Context, u *model.User, password string) (bool, error) {
	now := s.now()

	if u.AccountLocked {
		if u.LockActive(now) {
			return false, apperr.ErrAccountLocked
		}

		if _, err := s.users.Update(ctx, u.ID, store.NewPatch().
			With(model.FieldAccountLocked, false).
			Without(model.FieldAccountLockedExpire)); err != nil {
			return false, apperr.Internalf(err, "Failed to clear account lock")
		}
		u.AccountLocked = false
		u.AccountLockedExpire = nil
	}

	ok, err := s.hasher.Verify(ctx, password, u.Password)
	if err != nil {
		return false, apperr.Internalf(err, "Failed to verify password")
	}

	if !ok {
		locked, err := s.users.RecordLoginFailure(ctx, u.ID, MaxLoginFailures, now.Add(LockDuration))
		if err != nil {
			zap.L().Error("Failed to record login failure", zap.Error(err), zap.String("userID", u.ID))
		} else if locked.AccountLocked {
			zap.L().Info("Account locked", zap.String("userID", u.ID))
		}
		return false, nil
	}

	if u.LoginFailures != nil {
		if _, err := s.users.Update(ctx, u.ID, store.NewPatch().Without(model.FieldLoginFailures)); err != nil {
			zap.L().Error("Failed to reset login failures", zap.Error(err), zap.String("userID", u.ID))
		}
		u.LoginFailures = nil
	}

	return true, nil
}

// VerifyCredentials backs the mailed-link confirmations. An unknown email and
// a wrong password answer with the same error the caller returns for a bad
// link, so a confirmation never tells which part failed.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.users.ByEmail(ctx, validators.NormalizeEmail(email), store.WithPassword())
	if err != nil {
		return nil, lookup(err, apperr.ErrConfirmationFailed, "look up user")
	}

	ok, err := s.checkPassword(ctx, u, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrConfirmationFailed
	}

	u.Password = ""
	return u, nil
}
