package apikey_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/internal/apikey"
	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	*testkit.Env
	user  *model.User
	admin *model.User
}

func newFixture(t *testing.T) *fixture {
	e := testkit.New(t)
	return &fixture{
		Env:   e,
		user:  e.User(t, "a@x.com", model.RoleUser),
		admin: e.User(t, "admin@x.com", model.RoleAdmin),
	}
}

// approved requests and approves a key for the fixture user
func (f *fixture) approved(t *testing.T, apiName string) *model.APIKey {
	t.Helper()
	ctx := context.Background()

	r, err := f.Keys.RequestCreation(ctx, f.user, apiName)
	require.NoError(t, err)

	r, err = f.Keys.AdminDecision(ctx, f.user.ID, r.Key.ID, true)
	require.NoError(t, err)
	return r.Key
}

func TestRequestCreation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.Keys.RequestCreation(ctx, f.user, "Api-travel")
	require.NoError(t, err)
	assert.False(t, r.Key.Active)
	assert.Empty(t, r.Key.Key)
	assert.Equal(t, model.NoticeSuccess, r.Notification.Type)

	mail := f.Mailer.Last()
	require.NotNil(t, mail)
	assert.Equal(t, []string{"admin@x.com"}, mail.To)

	adminNotes := f.Notes(t, f.admin.ID)
	require.Len(t, adminNotes, 1)
	assert.Contains(t, adminNotes[0].Message, "Api-travel")

	_, err = f.Keys.RequestCreation(ctx, f.user, "Api-travel")
	assert.ErrorIs(t, err, apperr.ErrDuplicateKey)

	_, err = f.Keys.RequestCreation(ctx, f.user, "Api-unknown")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	keys, err := f.Keys.ListMine(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRequestCreationConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Keys.RequestCreation(ctx, f.user, "Api-geo")
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrDuplicateKey)
	}
	assert.Equal(t, 1, ok)

	keys, err := f.Keys.ListMine(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRequestCreationRollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("mail failure", func(t *testing.T) {
		f := newFixture(t)
		f.Mailer.SetDown(true)

		_, err := f.Keys.RequestCreation(ctx, f.user, "Api-travel")
		assert.Equal(t, apperr.EmailDeliveryFailed, apperr.KindOf(err))

		keys, err := f.Keys.ListMine(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.Empty(t, f.Notes(t, f.admin.ID), "admins hear nothing about a rolled back request")
	})

	t.Run("no admin", func(t *testing.T) {
		e := testkit.New(t)
		u := e.User(t, "a@x.com", model.RoleUser)

		_, err := e.Keys.RequestCreation(ctx, u, "Api-travel")
		assert.Equal(t, apperr.EmailDeliveryFailed, apperr.KindOf(err))
		assert.ErrorIs(t, err, apikey.ErrNoAdminToNotify)

		keys, err := e.Keys.ListMine(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	k := f.approved(t, "Api-travel")
	assert.True(t, k.Active)
	assert.NotEmpty(t, k.Key)
	assert.True(t, k.ExpiresAt.Equal(f.Clock.Now().Add(apikey.KeyTTL)))
	assert.Contains(t, f.Mailer.Last().Body, k.Key)

	// Reads decrypt transparently
	keys, err := f.Keys.ListMine(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, k.Key, keys[0].Key)

	_, err = f.Keys.AdminDecision(ctx, f.user.ID, k.ID, true)
	assert.ErrorIs(t, err, apikey.ErrKeyActive)

	_, err = f.Keys.AdminDecision(ctx, f.user.ID, "missing", true)
	assert.ErrorIs(t, err, apperr.ErrAPIKeyNotFound)
}

func TestApproveMailFailureDegrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.Keys.RequestCreation(ctx, f.user, "Api-travel")
	require.NoError(t, err)

	f.Mailer.SetDown(true)

	r, err = f.Keys.AdminDecision(ctx, f.user.ID, r.Key.ID, true)
	require.NoError(t, err)
	assert.True(t, r.Key.Active, "the approval stands")
	assert.Equal(t, model.NoticeFail, r.Notification.Type)

	userNotes := f.Notes(t, f.user.ID)
	assert.Equal(t, model.NoticeFail, userNotes[len(userNotes)-1].Type)

	adminNotes := f.Notes(t, f.admin.ID)
	assert.Equal(t, model.NoticeError, adminNotes[len(adminNotes)-1].Type)
}

func TestDeny(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.Keys.RequestCreation(ctx, f.user, "Api-travel")
	require.NoError(t, err)

	r, err = f.Keys.AdminDecision(ctx, f.user.ID, r.Key.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.NoticeSuccess, r.Notification.Type)

	keys, err := f.Keys.ListMine(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, keys)

	sets, err := f.Keys.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, sets, "an emptied set is removed")

	userNotes := f.Notes(t, f.user.ID)
	assert.Equal(t, model.NoticeFail, userNotes[len(userNotes)-1].Type)
}

func TestRenewal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.approved(t, "Api-weather")

	r, err := f.Keys.RequestRenewal(ctx, f.user, k.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NoticeSuccess, r.Notification.Type)
	token := f.Mailer.Token(t)

	_, err = f.Keys.ConfirmRenewal(ctx, "a@x.com", "wrong-password", token)
	assert.ErrorIs(t, err, apperr.ErrConfirmationFailed)

	f.Clock.Advance(time.Minute)

	r, err = f.Keys.ConfirmRenewal(ctx, "a@x.com", testkit.Password, token)
	require.NoError(t, err)
	assert.Equal(t, k.ID, r.Key.ID, "renewal keeps the entry")
	assert.NotEqual(t, k.Key, r.Key.Key)
	assert.Nil(t, r.Key.RenewalToken)
	assert.True(t, r.Key.ExpiresAt.Equal(f.Clock.Now().Add(apikey.KeyTTL)))
	assert.Contains(t, f.Mailer.Last().Body, r.Key.Key)

	_, err = f.Keys.ConfirmRenewal(ctx, "a@x.com", testkit.Password, token)
	assert.ErrorIs(t, err, apperr.ErrConfirmationFailed)
}

func TestRenewalRequiresActiveKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.Keys.RequestCreation(ctx, f.user, "Api-travel")
	require.NoError(t, err)

	_, err = f.Keys.RequestRenewal(ctx, f.user, r.Key.ID)
	assert.ErrorIs(t, err, apikey.ErrNotRenewable)

	k := f.approved(t, "Api-geo")
	f.Clock.Advance(apikey.KeyTTL + time.Second)

	_, err = f.Keys.RequestRenewal(ctx, f.user, k.ID)
	assert.ErrorIs(t, err, apikey.ErrNotRenewable, "expired keys cannot be renewed")
}

func TestRenewalRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.approved(t, "Api-weather")

	f.Mailer.SetDown(true)

	_, err := f.Keys.RequestRenewal(ctx, f.user, k.ID)
	assert.Equal(t, apperr.EmailDeliveryFailed, apperr.KindOf(err))

	set, err := f.APIKeys.ByUser(ctx, f.user.ID)
	require.NoError(t, err)
	got := set.Find(k.ID)
	require.NotNil(t, got)
	assert.Nil(t, got.RenewalToken)
	assert.Nil(t, got.RenewalTokenExpire)
}

func TestRenewalExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.approved(t, "Api-weather")

	_, err := f.Keys.RequestRenewal(ctx, f.user, k.ID)
	require.NoError(t, err)
	token := f.Mailer.Token(t)

	f.Clock.Advance(11 * time.Minute)

	_, err = f.Keys.ConfirmRenewal(ctx, "a@x.com", testkit.Password, token)
	assert.ErrorIs(t, err, apperr.ErrConfirmationFailed)

	_, err = f.Keys.ConfirmRenewal(ctx, "a@x.com", testkit.Password, strings.ToUpper(token))
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestDeleteKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := f.User(t, "b@x.com", model.RoleUser)

	k := f.approved(t, "Api-travel")
	f.approved(t, "Api-geo")

	// Another user naming the owner still only reaches their own keys
	_, err := f.Keys.DeleteKey(ctx, other, f.user.ID, k.ID)
	assert.ErrorIs(t, err, apperr.ErrAPIKeyNotFound)

	r, err := f.Keys.DeleteKey(ctx, f.user, "", k.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NoticeSuccess, r.Notification.Type)

	keys, err := f.Keys.ListMine(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	_, err = f.Keys.DeleteKey(ctx, f.admin, f.user.ID, keys[0].ID)
	require.NoError(t, err)

	userNotes := f.Notes(t, f.user.ID)
	assert.Equal(t, model.NoticeFail, userNotes[len(userNotes)-1].Type)

	_, err = f.APIKeys.ByUser(ctx, f.user.ID)
	assert.Error(t, err, "the empty set is gone")
}

func TestConfirmRenewalLockout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	forged := strings.Repeat("a", 64)

	_, wrongErr := f.Keys.ConfirmRenewal(ctx, "a@x.com", "wrong-password", forged)
	_, tokenErr := f.Keys.ConfirmRenewal(ctx, "a@x.com", testkit.Password, forged)
	assert.Equal(t, apperr.As(wrongErr).Code, apperr.As(tokenErr).Code, "a wrong password and a bad link look the same")

	for i := 0; i < account.MaxLoginFailures; i++ {
		_, err := f.Keys.ConfirmRenewal(ctx, "a@x.com", "wrong-password", forged)
		require.ErrorIs(t, err, apperr.ErrConfirmationFailed)
	}

	got, err := f.Users.ByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, got.AccountLocked, "wrong confirmations count towards the lockout")

	_, err = f.Keys.ConfirmRenewal(ctx, "a@x.com", testkit.Password, forged)
	assert.ErrorIs(t, err, apperr.ErrAccountLocked)

	_, err = f.Accounts.Login(ctx, "a@x.com", testkit.Password)
	assert.ErrorIs(t, err, apperr.ErrAccountLocked)
}
