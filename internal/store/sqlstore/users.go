// Package sqlstore implements the store contracts on top of gorm. It backs the
// postgres and sqlite drivers.
package sqlstore

import (
	"context"
	"errors"
	"time"

	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newID() (string, error) {
	return gonanoid.Generate(charset, 16)
}

// Migrate creates or updates every table used by the store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.User{}, model.APIKey{}, model.Notification{})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	default:
		return err
	}
}

// columns turns a patch into a gorm update map. Unset fields become NULL.
func columns(p *store.Patch) map[string]any {
	values := make(map[string]any, len(p.Set)+len(p.Unset))
	for k, v := range p.Set {
		values[k] = v
	}
	for _, k := range p.Unset {
		values[k] = nil
	}
	return values
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) query(ctx context.Context, opts []store.FindOption) *gorm.DB {
	q := s.db.WithContext(ctx)
	if !store.BuildFindOptions(opts...).WithPassword {
		q = q.Omit(model.FieldPassword)
	}
	return q
}

func (s *Users) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		u.ID = id
	}

	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Users) ByID(ctx context.Context, id string, opts ...store.FindOption) (*model.User, error) {
	var u model.User

	err := s.query(ctx, opts).
		Where("id = ?", id).
		First(&u).
		Error
	if err != nil {
		return nil, translate(err)
	}

	return &u, nil
}

func (s *Users) ByEmail(ctx context.Context, email string, opts ...store.FindOption) (*model.User, error) {
	var u model.User

	err := s.query(ctx, opts).
		Where("email = ?", email).
		First(&u).
		Error
	if err != nil {
		return nil, translate(err)
	}

	return &u, nil
}

func (s *Users) ByToken(ctx context.Context, l store.TokenLookup, opts ...store.FindOption) (*model.User, error) {
	tokenField, expireField := l.Kind.Fields()

	q := s.query(ctx, opts).
		Where(tokenField+" = ? AND "+expireField+" > ?", l.Hashed, l.Now)
	if l.Email != "" {
		q = q.Where("email = ?", l.Email)
	}

	var u model.User
	if err := q.First(&u).Error; err != nil {
		return nil, translate(err)
	}

	return &u, nil
}

func (s *Users) List(ctx context.Context) ([]model.User, error) {
	var users []model.User

	err := s.query(ctx, nil).
		Order("created_at desc").
		Find(&users).
		Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Users) AdminEmails(ctx context.Context) ([]string, []string, error) {
	var rows []struct {
		ID    string
		Email string
	}

	err := s.db.WithContext(ctx).
		Model(model.User{}).
		Where("role = ?", model.RoleAdmin).
		Select("id", "email").
		Find(&rows).
		Error
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(rows))
	emails := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
		emails = append(emails, r.Email)
	}

	return ids, emails, nil
}

func (s *Users) Update(ctx context.Context, id string, p *store.Patch) (*model.User, error) {
	if !p.Empty() {
		r := s.db.WithContext(ctx).
			Model(model.User{}).
			Where("id = ?", id).
			Updates(columns(p))
		if r.Error != nil {
			return nil, translate(r.Error)
		}
		if r.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}

	return s.ByID(ctx, id)
}

func (s *Users) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (*model.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := tx.Model(model.User{}).
			Where("id = ?", id).
			Update(model.FieldLoginFailures, gorm.Expr("COALESCE(login_failures, 0) + 1"))
		if r.Error != nil {
			return r.Error
		}
		if r.RowsAffected == 0 {
			return store.ErrNotFound
		}

		return tx.Model(model.User{}).
			Where("id = ? AND login_failures >= ?", id, threshold).
			Updates(map[string]any{
				model.FieldAccountLocked:       true,
				model.FieldAccountLockedExpire: lockUntil,
				model.FieldLoginFailures:       nil,
			}).
			Error
	})
	if err != nil {
		return nil, translate(err)
	}

	return s.ByID(ctx, id)
}

func (s *Users) Delete(ctx context.Context, id string) error {
	r := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.User{})
	if r.Error != nil {
		return r.Error
	}
	if r.RowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Users) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	for _, kind := range []store.TokenKind{store.PasswordResetToken, store.EmailResetToken} {
		tokenField, expireField := kind.Fields()

		r := s.db.WithContext(ctx).
			Model(model.User{}).
			Where(expireField+" < ?", now).
			Updates(map[string]any{
				tokenField:  nil,
				expireField: nil,
			})
		if r.Error != nil {
			return total, r.Error
		}

		total += r.RowsAffected
	}

	return total, nil
}
