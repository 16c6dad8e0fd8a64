// Package apikey implements the API key lifecycle: creation request, admin
// approval or denial, renewal and deletion.
package apikey

import (
	"context"
	"errors"
	"time"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/notify"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"

	"go.uber.org/zap"
)

// KeyTTL is the validity of a key after approval or renewal
const KeyTTL = 365 * 24 * time.Hour

var (
	ErrKeyActive       = apperr.New(apperr.Conflict, "api_key_active", "This API key is already active")
	ErrNotRenewable    = apperr.New(apperr.NotFound, "api_key_not_renewable", "Only active and unexpired API keys can be renewed")
	ErrNoAdminToNotify = errors.New("no admin to notify")
)

// Credentials checks a password under the account lockout rules
type Credentials interface {
	VerifyCredentials(ctx context.Context, email, password string) (*model.User, error)
}

type Result struct {
	Key          *model.APIKey
	Notification *model.Notice
}

type Config struct {
	Users store.Users
	// Expected to encrypt at rest, see store.EncryptedAPIKeys
	APIKeys     store.APIKeys
	Ledger      *notify.Ledger
	Mailer      service.Mailer
	Credentials Credentials
	Links       *service.Links
	Now         func() time.Time
}

type Service struct {
	users       store.Users
	keys        store.APIKeys
	ledger      *notify.Ledger
	mailer      service.Mailer
	credentials Credentials
	links       *service.Links
	now         func() time.Time
}

func New(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Service{
		users:       c.Users,
		keys:        c.APIKeys,
		ledger:      c.Ledger,
		mailer:      c.Mailer,
		credentials: c.Credentials,
		links:       c.Links,
		now:         c.Now,
	}
}

func lookup(err error, notFound *apperr.Error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return apperr.Internalf(err, "Failed to %s", op)
}

func (s *Service) send(ctx context.Context, m *service.Mail) error {
	err := s.mailer.Send(ctx, m)
	if err != nil {
		zap.L().Warn("Mail delivery failed", zap.Error(err), zap.String("subject", m.Subject))
	}
	return err
}

// find returns the user's key with keyID
func (s *Service) find(ctx context.Context, userID, keyID string) (*model.APIKey, error) {
	set, err := s.keys.ByUser(ctx, userID)
	if err != nil {
		return nil, lookup(err, apperr.ErrAPIKeyNotFound, "fetch api keys")
	}

	k := set.Find(keyID)
	if k == nil {
		return nil, apperr.ErrAPIKeyNotFound
	}

	return k, nil
}

// pull removes a key as a compensation step. Failures need a human.
func (s *Service) pull(ctx context.Context, userID, keyID string) {
	if _, err := s.keys.Pull(ctx, userID, keyID); err != nil {
		zap.L().Error("Failed to roll back api key", zap.Error(err), zap.String("userID", userID), zap.String("keyID", keyID))
		s.ledger.Alert(ctx, "API key "+keyID+" of user "+userID+" could not be rolled back")
	}
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]model.APIKey, error) {
	set, err := s.keys.ByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return []model.APIKey{}, nil
	}
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to fetch api keys")
	}

	return set.Keys, nil
}

func (s *Service) ListAll(ctx context.Context) ([]model.APIKeySet, error) {
	sets, err := s.keys.List(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to fetch api keys")
	}

	// Admins see requests and status, never the secrets
	for i := range sets {
		for j := range sets[i].Keys {
			sets[i].Keys[j].Key = ""
		}
	}
	return sets, nil
}
