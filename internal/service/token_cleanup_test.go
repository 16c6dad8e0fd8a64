package service_test

import (
	"context"
	"testing"
	"time"

	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupTokens(t *testing.T) {
	ctx := context.Background()
	e := testkit.New(t)
	u := e.User(t, "a@x.com", model.RoleUser)
	e.User(t, "admin@x.com", model.RoleAdmin)

	_, err := e.Accounts.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)

	r, err := e.Keys.RequestCreation(ctx, u, "Api-travel")
	require.NoError(t, err)
	r, err = e.Keys.AdminDecision(ctx, u.ID, r.Key.ID, true)
	require.NoError(t, err)
	_, err = e.Keys.RequestRenewal(ctx, u, r.Key.ID)
	require.NoError(t, err)

	// Nothing has expired yet
	service.CleanupTokens(ctx, e.Clock.Now(), e.Users, e.APIKeys)

	got, err := e.Users.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.PasswordResetToken)

	service.CleanupTokens(ctx, e.Clock.Now().Add(11*time.Minute), e.Users, e.APIKeys)

	got, err = e.Users.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PasswordResetToken)
	assert.Nil(t, got.PasswordResetExpire)

	set, err := e.APIKeys.ByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, set.Keys[0].RenewalToken)
	assert.True(t, set.Keys[0].Active, "the key itself is untouched")
}

func TestTokenCleanupStops(t *testing.T) {
	e := testkit.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		service.TokenCleanup(ctx, time.Millisecond, e.Users, e.APIKeys)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
