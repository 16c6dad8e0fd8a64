package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/account-api/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the lifetime of a session token
const SessionTTL = 30 * 24 * time.Hour

var ErrInvalidSession = errors.New("session token invalid")

func init() {
	// iat is compared with credential change stamps, whole seconds are too coarse
	jwt.TimePrecision = time.Millisecond
}

type Claims struct {
	UserID string     `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies HS256 session tokens with the named secret
type Sessions struct {
	secrets *SecretCache
	name    string
	now     func() time.Time
}

// NewSessions returns a session issuer. now defaults to time.Now.
func NewSessions(secrets *SecretCache, name string, now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{secrets: secrets, name: name, now: now}
}

func (s *Sessions) Issue(ctx context.Context, u *model.User) (string, error) {
	secret, err := s.secrets.Get(ctx, s.name)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse validates the signature and expiry of token and returns its claims
func (s *Sessions) Parse(ctx context.Context, token string) (*Claims, error) {
	secret, err := s.secrets.Get(ctx, s.name)
	if err != nil {
		return nil, err
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return []byte(secret), nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrInvalidSession, err)
	}

	if claims.UserID == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidSession
	}

	return &claims, nil
}
