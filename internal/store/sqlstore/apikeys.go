package sqlstore

import (
	"context"
	"time"

	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"

	"gorm.io/gorm"
)

// APIKeys stores one row per key. The per-user set is the group of rows
// sharing a user_id, so an empty set cannot exist.
type APIKeys struct {
	db *gorm.DB
}

func NewAPIKeys(db *gorm.DB) *APIKeys {
	return &APIKeys{db: db}
}

func (s *APIKeys) ByUser(ctx context.Context, userID string) (*model.APIKeySet, error) {
	var keys []model.APIKey

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&keys).
		Error
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return nil, store.ErrNotFound
	}

	return &model.APIKeySet{ID: userID, UserID: userID, Keys: keys}, nil
}

func (s *APIKeys) List(ctx context.Context) ([]model.APIKeySet, error) {
	var keys []model.APIKey

	err := s.db.WithContext(ctx).
		Order("user_id asc, created_at asc").
		Find(&keys).
		Error
	if err != nil {
		return nil, err
	}

	var sets []model.APIKeySet
	for _, k := range keys {
		if n := len(sets); n == 0 || sets[n-1].UserID != k.UserID {
			sets = append(sets, model.APIKeySet{ID: k.UserID, UserID: k.UserID})
		}
		last := &sets[len(sets)-1]
		last.Keys = append(last.Keys, k)
	}

	return sets, nil
}

func (s *APIKeys) Push(ctx context.Context, userID string, k *model.APIKey) error {
	id, err := newID()
	if err != nil {
		return err
	}

	k.ID = id
	k.UserID = userID

	// The (user_id, api_name) unique index settles concurrent duplicates
	return translate(s.db.WithContext(ctx).Create(k).Error)
}

func (s *APIKeys) UpdateKey(ctx context.Context, userID, keyID string, p *store.Patch) (*model.APIKey, error) {
	if !p.Empty() {
		r := s.db.WithContext(ctx).
			Model(model.APIKey{}).
			Where("user_id = ? AND id = ?", userID, keyID).
			Updates(columns(p))
		if r.Error != nil {
			return nil, translate(r.Error)
		}
		if r.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}

	var k model.APIKey
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, keyID).
		First(&k).
		Error
	if err != nil {
		return nil, translate(err)
	}

	return &k, nil
}

func (s *APIKeys) ByRenewalToken(ctx context.Context, userID, hashed string, now time.Time) (*model.APIKey, error) {
	var k model.APIKey

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND renewal_token = ? AND renewal_token_expire > ? AND active = ?", userID, hashed, now, true).
		First(&k).
		Error
	if err != nil {
		return nil, translate(err)
	}

	return &k, nil
}

func (s *APIKeys) Pull(ctx context.Context, userID, keyID string) (int, error) {
	r := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, keyID).
		Delete(&model.APIKey{})
	if r.Error != nil {
		return 0, r.Error
	}
	if r.RowsAffected == 0 {
		return 0, store.ErrNotFound
	}

	var left int64
	err := s.db.WithContext(ctx).
		Model(model.APIKey{}).
		Where("user_id = ?", userID).
		Count(&left).
		Error
	if err != nil {
		return 0, err
	}

	return int(left), nil
}

func (s *APIKeys) DeleteByUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.APIKey{}).
		Error
}

func (s *APIKeys) ClearExpiredRenewals(ctx context.Context, now time.Time) (int64, error) {
	r := s.db.WithContext(ctx).
		Model(model.APIKey{}).
		Where("renewal_token_expire < ?", now).
		Updates(map[string]any{
			model.FieldRenewalToken:       nil,
			model.FieldRenewalTokenExpire: nil,
		})

	return r.RowsAffected, r.Error
}
