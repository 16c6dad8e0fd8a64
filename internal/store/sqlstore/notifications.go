package sqlstore

import (
	"context"
	"time"

	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"

	"gorm.io/gorm"
)

type Notifications struct {
	db *gorm.DB
}

func NewNotifications(db *gorm.DB) *Notifications {
	return &Notifications{db: db}
}

func (s *Notifications) Push(ctx context.Context, userID string, n *model.Notification) error {
	id, err := newID()
	if err != nil {
		return err
	}

	n.ID = id
	n.UserID = userID

	return translate(s.db.WithContext(ctx).Create(n).Error)
}

func (s *Notifications) ByUser(ctx context.Context, userID string) (*model.NotificationSet, error) {
	var list []model.Notification

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}

	if len(list) == 0 {
		return nil, store.ErrNotFound
	}

	return &model.NotificationSet{ID: userID, UserID: userID, Notifications: list}, nil
}

func (s *Notifications) Update(ctx context.Context, userID, id string, p *store.Patch) (*model.Notification, error) {
	if !p.Empty() {
		r := s.db.WithContext(ctx).
			Model(model.Notification{}).
			Where("user_id = ? AND id = ?", userID, id).
			Updates(columns(p))
		if r.Error != nil {
			return nil, translate(r.Error)
		}
		if r.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}

	var n model.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&n).
		Error
	if err != nil {
		return nil, translate(err)
	}

	return &n, nil
}

func (s *Notifications) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]any{
			model.FieldRead:   true,
			model.FieldReadAt: at,
		}).
		Error
}

func (s *Notifications) Pull(ctx context.Context, userID, id string) error {
	r := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&model.Notification{})
	if r.Error != nil {
		return r.Error
	}
	if r.RowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Notifications) DeleteByUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Notification{}).
		Error
}
