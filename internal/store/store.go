// Package store declares the persistence contracts used by the account, API
// key and notification services. mongostore and sqlstore implement them.
package store

import (
	"context"
	"errors"
	"time"

	"bitwise74/account-api/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Patch is a partial update. Keys are model.Field* names.
type Patch struct {
	Set   map[string]any
	Unset []string
}

func NewPatch() *Patch {
	return &Patch{Set: map[string]any{}}
}

func (p *Patch) With(field string, value any) *Patch {
	p.Set[field] = value
	return p
}

func (p *Patch) Without(fields ...string) *Patch {
	p.Unset = append(p.Unset, fields...)
	return p
}

func (p *Patch) Empty() bool {
	return p == nil || (len(p.Set) == 0 && len(p.Unset) == 0)
}

// TokenKind selects one of the token/expiry pairs stored on a user.
type TokenKind int

const (
	ActivationToken TokenKind = iota
	PasswordResetToken
	EmailResetToken
)

// Fields returns the token and expiry field names for k.
func (k TokenKind) Fields() (token, expire string) {
	switch k {
	case PasswordResetToken:
		return model.FieldPasswordResetToken, model.FieldPasswordResetExpire
	case EmailResetToken:
		return model.FieldEmailResetToken, model.FieldEmailResetExpire
	default:
		return model.FieldActivationAccountToken, model.FieldActivationAccountTokenExpire
	}
}

// TokenLookup finds a user holding an unexpired hashed token. Email is
// optional and narrows the lookup when set.
type TokenLookup struct {
	Kind   TokenKind
	Hashed string
	Email  string
	Now    time.Time
}

type FindOption func(*FindOptions)

type FindOptions struct {
	WithPassword bool
}

// WithPassword is the elevated fetch. Without it the password hash is never
// loaded.
func WithPassword() FindOption {
	return func(o *FindOptions) { o.WithPassword = true }
}

func BuildFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type Users interface {
	// Create fails with ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *model.User) error
	ByID(ctx context.Context, id string, opts ...FindOption) (*model.User, error)
	ByEmail(ctx context.Context, email string, opts ...FindOption) (*model.User, error)
	ByToken(ctx context.Context, l TokenLookup, opts ...FindOption) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	AdminEmails(ctx context.Context) (ids []string, emails []string, err error)
	// Update applies p and returns the updated user.
	Update(ctx context.Context, id string, p *Patch) (*model.User, error)
	// RecordLoginFailure increments the failure counter atomically. When the
	// counter reaches threshold the account is locked until lockUntil and the
	// counter is unset.
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (*model.User, error)
	Delete(ctx context.Context, id string) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type APIKeys interface {
	ByUser(ctx context.Context, userID string) (*model.APIKeySet, error)
	List(ctx context.Context) ([]model.APIKeySet, error)
	// Push adds k to the user's set, creating the set if needed. Fails with
	// ErrDuplicate when the user already owns a key with the same APIName.
	Push(ctx context.Context, userID string, k *model.APIKey) error
	UpdateKey(ctx context.Context, userID, keyID string, p *Patch) (*model.APIKey, error)
	// ByRenewalToken finds an active key holding an unexpired renewal token.
	ByRenewalToken(ctx context.Context, userID, hashed string, now time.Time) (*model.APIKey, error)
	// Pull removes a key and deletes the set when it becomes empty. It
	// returns the number of keys left.
	Pull(ctx context.Context, userID, keyID string) (int, error)
	DeleteByUser(ctx context.Context, userID string) error
	ClearExpiredRenewals(ctx context.Context, now time.Time) (int64, error)
}

type Notifications interface {
	// Push appends n to the user's ledger, creating it on first use.
	Push(ctx context.Context, userID string, n *model.Notification) error
	ByUser(ctx context.Context, userID string) (*model.NotificationSet, error)
	Update(ctx context.Context, userID, id string, p *Patch) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) error
	Pull(ctx context.Context, userID, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}
