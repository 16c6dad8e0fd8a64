package security

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bitwise74/account-api/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Fetch(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func fastArgon() *ArgonHash {
	a := New(2)
	a.Memory = 8 * 1024
	a.Iterations = 1
	return a
}

func TestArgonHashVerify(t *testing.T) {
	ctx := context.Background()
	a := fastArgon()

	hash, err := a.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := a.Verify(ctx, "Passw0rd!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Verify(ctx, "wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := a.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")
}

func TestArgonVerifyMalformed(t *testing.T) {
	_, err := fastArgon().Verify(context.Background(), "x", "not-a-hash")
	assert.Error(t, err)
}

func TestArgonHashCanceled(t *testing.T) {
	a := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	// Hold the only slot so Hash has to wait on ctx
	require.NoError(t, a.sem.Acquire(context.Background(), 1))
	defer a.sem.Release(1)
	cancel()

	_, err := a.Hash(ctx, "Passw0rd!")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateResetToken(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tok, err := GenerateResetToken(now)
	require.NoError(t, err)

	assert.Len(t, tok.Plain, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", tok.Plain)
	assert.Equal(t, HashToken(tok.Plain), tok.Hashed)
	assert.NotEqual(t, tok.Plain, tok.Hashed)
	assert.Equal(t, now.Add(10*time.Minute), tok.ExpiresAt)

	again, err := GenerateResetToken(now)
	require.NoError(t, err)
	assert.NotEqual(t, tok.Plain, again.Plain)
}

func TestSecretCacheFetchesOnce(t *testing.T) {
	src := &mockSource{}
	src.On("Fetch", mock.Anything, "jwt").Return("s3cr3t", nil).Once()

	c := NewSecretCache(src)
	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), "jwt")
		require.NoError(t, err)
		assert.Equal(t, "s3cr3t", v)
	}

	src.AssertExpectations(t)
}

func TestSecretCacheDoesNotCacheFailures(t *testing.T) {
	src := &mockSource{}
	src.On("Fetch", mock.Anything, "jwt").Return("", errors.New("throttled")).Once()
	src.On("Fetch", mock.Anything, "jwt").Return("s3cr3t", nil).Once()

	c := NewSecretCache(src)

	_, err := c.Get(context.Background(), "jwt")
	require.Error(t, err)

	v, err := c.Get(context.Background(), "jwt")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)

	src.AssertExpectations(t)
}

func TestSecretCacheEmpty(t *testing.T) {
	c := NewSecretCache(StaticSource{"jwt": ""})

	_, err := c.Get(context.Background(), "jwt")
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = c.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestKeyCipherRoundTrip(t *testing.T) {
	ctx := context.Background()
	k := NewKeyCipher(NewSecretCache(StaticSource{"api": "key-secret"}), "api")

	plain := CreateKey()
	enc, err := k.Encrypt(ctx, plain)
	require.NoError(t, err)
	assert.NotContains(t, enc, plain)

	again, err := k.Encrypt(ctx, plain)
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "nonce must be random")

	dec, err := k.Decrypt(ctx, enc)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestKeyCipherWrongSecret(t *testing.T) {
	ctx := context.Background()
	a := NewKeyCipher(NewSecretCache(StaticSource{"api": "one"}), "api")
	b := NewKeyCipher(NewSecretCache(StaticSource{"api": "two"}), "api")

	enc, err := a.Encrypt(ctx, "value")
	require.NoError(t, err)

	_, err = b.Decrypt(ctx, enc)
	assert.Error(t, err)

	_, err = a.Decrypt(ctx, "c2hvcnQ=")
	assert.Error(t, err)
}

func TestKeyCipherSecretUnavailable(t *testing.T) {
	k := NewKeyCipher(NewSecretCache(StaticSource{}), "api")

	_, err := k.Encrypt(context.Background(), "value")
	assert.Error(t, err)
}

func TestSessions(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	secrets := NewSecretCache(StaticSource{"jwt": "jwt-secret"})
	s := NewSessions(secrets, "jwt", clock)

	u := &model.User{ID: "u1", Role: model.RoleAdmin}
	token, err := s.Issue(context.Background(), u)
	require.NoError(t, err)

	claims, err := s.Parse(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(SessionTTL).Unix(), claims.ExpiresAt.Unix())

	t.Run("millisecond iat", func(t *testing.T) {
		at := now.Add(1250 * time.Millisecond)
		s := NewSessions(secrets, "jwt", func() time.Time { return at })

		token, err := s.Issue(context.Background(), u)
		require.NoError(t, err)

		claims, err := s.Parse(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, claims.IssuedAt.Time.Equal(at), "got %v", claims.IssuedAt.Time)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewSessions(secrets, "jwt", func() time.Time { return now.Add(SessionTTL + time.Minute) })
		_, err := later.Parse(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSessions(NewSecretCache(StaticSource{"jwt": "other"}), "jwt", clock)
		_, err := other.Parse(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Parse(context.Background(), "a.b.c")
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("other algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		raw, err := tok.SignedString([]byte("jwt-secret"))
		require.NoError(t, err)

		_, err = s.Parse(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("secret unavailable", func(t *testing.T) {
		broken := NewSessions(NewSecretCache(StaticSource{}), "jwt", clock)
		_, err := broken.Parse(context.Background(), token)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidSession)
	})
}
