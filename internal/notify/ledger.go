// Package notify keeps the per-user notification ledger
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"

	"go.uber.org/zap"
)

type Ledger struct {
	notes store.Notifications
	users store.Users
	now   func() time.Time
}

func New(notes store.Notifications, users store.Users, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{notes: notes, users: users, now: now}
}

// Append adds an entry to the user's ledger. A blank userID, type or message
// yields (nil, nil): there is nothing to report, which is not a failure.
func (l *Ledger) Append(ctx context.Context, userID string, typ model.NoticeType, message string) (*model.Notification, error) {
	if userID == "" || typ == "" || strings.TrimSpace(message) == "" {
		return nil, nil
	}

	n := &model.Notification{
		Type:      typ,
		Message:   message,
		CreatedAt: l.now(),
	}

	if err := l.notes.Push(ctx, userID, n); err != nil {
		return nil, apperr.Internalf(err, "Failed to save notification")
	}

	return n, nil
}

// BroadcastToAdmins appends the entry to every admin's ledger. It returns how
// many ledgers were written.
func (l *Ledger) BroadcastToAdmins(ctx context.Context, typ model.NoticeType, message string) (int, error) {
	ids, _, err := l.users.AdminEmails(ctx)
	if err != nil {
		return 0, apperr.Internalf(err, "Failed to list admins")
	}

	var (
		sent int
		errs []error
	)
	for _, id := range ids {
		n, err := l.Append(ctx, id, typ, message)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if n != nil {
			sent++
		}
	}

	return sent, errors.Join(errs...)
}

// Record appends notice to the user's ledger. Ledger writes never fail the
// flow that produced them, errors are only logged.
func (l *Ledger) Record(ctx context.Context, userID string, notice *model.Notice) {
	if notice == nil {
		return
	}

	if _, err := l.Append(ctx, userID, notice.Type, notice.Message); err != nil {
		zap.L().Error("Failed to record notification", zap.Error(err), zap.String("userID", userID))
	}
}

// Alert broadcasts an error-typed entry to admins, logging any failure
func (l *Ledger) Alert(ctx context.Context, message string) {
	if _, err := l.BroadcastToAdmins(ctx, model.NoticeError, message); err != nil {
		zap.L().Error("Failed to alert admins", zap.Error(err), zap.String("alert", message))
	}
}

// ForUser returns the user's entries, oldest first
func (l *Ledger) ForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	set, err := l.notes.ByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return []model.Notification{}, nil
	}
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to fetch notifications")
	}

	return set.Notifications, nil
}

func (l *Ledger) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	p := store.NewPatch().
		With(model.FieldRead, true).
		With(model.FieldReadAt, l.now())

	return l.update(ctx, userID, id, p)
}

func (l *Ledger) MarkViewed(ctx context.Context, userID, id string) (*model.Notification, error) {
	return l.update(ctx, userID, id, store.NewPatch().With(model.FieldView, true))
}

func (l *Ledger) MarkAllRead(ctx context.Context, userID string) error {
	if err := l.notes.MarkAllRead(ctx, userID, l.now()); err != nil {
		return apperr.Internalf(err, "Failed to update notifications")
	}
	return nil
}

// Delete removes one entry. The ledger itself stays even when emptied.
func (l *Ledger) Delete(ctx context.Context, userID, id string) error {
	err := l.notes.Pull(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrNotifNotFound
	}
	if err != nil {
		return apperr.Internalf(err, "Failed to delete notification")
	}
	return nil
}

func (l *Ledger) update(ctx context.Context, userID, id string, p *store.Patch) (*model.Notification, error) {
	n, err := l.notes.Update(ctx, userID, id, p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrNotifNotFound
	}
	if err != nil {
		return nil, apperr.Internalf(err, "Failed to update notification")
	}
	return n, nil
}
