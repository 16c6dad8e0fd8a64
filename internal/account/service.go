// Package account implements the user lifecycle: signup, activation, login
// with lockout, self-service disablement and credential changes.
package account

import (
	"context"
	"errors"
	"time"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/notify"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"

	"go.uber.org/zap"
)

const (
	// MaxLoginFailures consecutive wrong passwords lock the account
	MaxLoginFailures = 5
	LockDuration     = time.Hour
)

type Hasher interface {
	Hash(ctx context.Context, p string) (string, error)
	Verify(ctx context.Context, p, encoded string) (bool, error)
}

type Sessions interface {
	Issue(ctx context.Context, u *model.User) (string, error)
	Parse(ctx context.Context, token string) (*security.Claims, error)
}

// Result is what a flow hands back to the transport. Session is empty when no
// session was issued, Notification is nil when there is nothing to report.
type Result struct {
	User         *model.User
	Session      string
	Notification *model.Notice
}

type Config struct {
	Users         store.Users
	APIKeys       store.APIKeys
	Notifications store.Notifications
	Ledger        *notify.Ledger
	Mailer        service.Mailer
	Hasher        Hasher
	Sessions      Sessions
	Links         *service.Links
	// Defaults to time.Now
	Now func() time.Time
}

type Service struct {
	users    store.Users
	keys     store.APIKeys
	notes    store.Notifications
	ledger   *notify.Ledger
	mailer   service.Mailer
	hasher   Hasher
	sessions Sessions
	links    *service.Links
	now      func() time.Time
}

func New(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Service{
		users:    c.Users,
		keys:     c.APIKeys,
		notes:    c.Notifications,
		ledger:   c.Ledger,
		mailer:   c.Mailer,
		hasher:   c.Hasher,
		sessions: c.Sessions,
		links:    c.Links,
		now:      c.Now,
	}
}

// lookup maps a store miss to notFound and anything else to Internal
func lookup(err error, notFound *apperr.Error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return apperr.Internalf(err, "Failed to %s", op)
}

// changeStamp marks a credential change. The session issued with the change
// is signed after it, so only older sessions go stale.
func (s *Service) changeStamp() time.Time {
	return s.now()
}

// issueToken stores a fresh token pair of the given kind on the user
func (s *Service) issueToken(ctx context.Context, userID string, kind store.TokenKind) (*security.ResetToken, *model.User, error) {
	tok, err := security.GenerateResetToken(s.now())
	if err != nil {
		return nil, nil, apperr.Internalf(err, "Failed to generate token")
	}

	tokenField, expireField := kind.Fields()
	u, err := s.users.Update(ctx, userID, store.NewPatch().
		With(tokenField, tok.Hashed).
		With(expireField, tok.ExpiresAt))
	if err != nil {
		return nil, nil, lookup(err, apperr.ErrUserNotFound, "save token")
	}

	return tok, u, nil
}

// clearToken is the compensation step for a token whose mail never left
func (s *Service) clearToken(ctx context.Context, userID string, kind store.TokenKind) {
	tokenField, expireField := kind.Fields()

	if _, err := s.users.Update(ctx, userID, store.NewPatch().Without(tokenField, expireField)); err != nil {
		zap.L().Error("Failed to roll back undelivered token", zap.Error(err), zap.String("userID", userID))
		s.ledger.Alert(ctx, "An undelivered token could not be cleared for user "+userID)
	}
}

func (s *Service) send(ctx context.Context, m *service.Mail) error {
	err := s.mailer.Send(ctx, m)
	if err != nil {
		zap.L().Warn("Mail delivery failed", zap.Error(err), zap.String("subject", m.Subject))
	}
	return err
}

// confirm mails a confirmation for a change that already committed. Delivery
// failure degrades the outcome to a fail notice, it never undoes the change.
func (s *Service) confirm(ctx context.Context, u *model.User, m *service.Mail, ok, degraded string) *model.Notice {
	notice := model.Success(ok)
	if err := s.send(ctx, m); err != nil {
		notice = model.Fail(degraded)
	}

	s.ledger.Record(ctx, u.ID, notice)
	return notice
}

// session issues a session for u and strips the password hash
func (s *Service) session(ctx context.Context, u *model.User) (*Result, error) {
	token, err := s.sessions.Issue(ctx, u)
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to issue session")
	}

	u.Password = ""
	return &Result{User: u, Session: token}, nil
}

// cascade removes everything owned by the user, then the user
func (s *Service) cascade(ctx context.Context, userID string) error {
	if err := s.keys.DeleteByUser(ctx, userID); err != nil {
		return apperr.Internalf(err, "Failed to delete api keys")
	}

	if err := s.notes.DeleteByUser(ctx, userID); err != nil {
		return apperr.Internalf(err, "Failed to delete notifications")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return lookup(err, apperr.ErrUserNotFound, "delete user")
	}

	return nil
}
