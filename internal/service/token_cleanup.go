package service

import (
	"context"
	"time"

	"bitwise74/account-api/internal/store"

	"go.uber.org/zap"
)

// TokenCleanup periodically clears expired password reset, email reset and
// API key renewal tokens. Activation tokens and account locks are left alone,
// login handles them lazily. It returns when ctx is done.
func TokenCleanup(ctx context.Context, t time.Duration, users store.Users, keys store.APIKeys) {
	ticker := time.NewTicker(t)
	defer ticker.Stop()

	zap.L().Debug("Token cleanup attached", zap.Duration("tick_every", t))

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			CleanupTokens(ctx, now, users, keys)
		}
	}
}

// CleanupTokens runs a single sweep
func CleanupTokens(ctx context.Context, now time.Time, users store.Users, keys store.APIKeys) {
	n, err := users.ClearExpiredResetTokens(ctx, now)
	if err != nil {
		zap.L().Error("Failed to clear expired reset tokens", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("Cleared expired reset tokens", zap.Int64("count", n))
	}

	n, err = keys.ClearExpiredRenewals(ctx, now)
	if err != nil {
		zap.L().Error("Failed to clear expired renewal tokens", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("Cleared expired renewal tokens", zap.Int64("count", n))
	}
}
