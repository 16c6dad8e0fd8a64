package security

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	tokenSize = 32
	// TokenTTL is how long activation, reset and renewal tokens stay valid
	TokenTTL = 10 * time.Minute
)

// ResetToken is a one-time credential. Plain goes to the user, only Hashed is
// stored.
type ResetToken struct {
	Plain     string
	Hashed    string
	ExpiresAt time.Time
}

// GenerateResetToken returns a 64 hex char token expiring TokenTTL after now
func GenerateResetToken(now time.Time) (*ResetToken, error) {
	b, err := genRandByt(tokenSize)
	if err != nil {
		return nil, err
	}

	plain := hex.EncodeToString(b)

	return &ResetToken{
		Plain:     plain,
		Hashed:    HashToken(plain),
		ExpiresAt: now.Add(TokenTTL),
	}, nil
}

// HashToken re-derives the stored form of a token presented by a client
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
