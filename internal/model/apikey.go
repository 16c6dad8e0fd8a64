package model

import "time"

const (
	FieldAPIKey             = "api_key"
	FieldAPIKeyExpire       = "api_key_expire"
	FieldAPIKeyActive       = "active"
	FieldRenewalToken       = "renewal_token"
	FieldRenewalTokenExpire = "renewal_token_expire"
)

// APIKeySet is every key owned by one user. It only exists while it holds at
// least one key.
type APIKeySet struct {
	ID     string   `json:"id"`
	UserID string   `json:"user"`
	Keys   []APIKey `json:"apiKeys"`
}

// Find returns the key with the given ID.
func (s *APIKeySet) Find(keyID string) *APIKey {
	for i := range s.Keys {
		if s.Keys[i].ID == keyID {
			return &s.Keys[i]
		}
	}
	return nil
}

// Has reports whether a key named apiName is already in the set.
func (s *APIKeySet) Has(apiName string) bool {
	for _, k := range s.Keys {
		if k.APIName == apiName {
			return true
		}
	}
	return false
}

type APIKey struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"not null;uniqueIndex:idx_user_api_name" json:"-"`
	// Unique per user
	APIName string `gorm:"not null;uniqueIndex:idx_user_api_name" json:"apiName"`
	// Ciphertext in the store, plaintext only for the owner. Empty until approved.
	Key                string     `gorm:"column:api_key" json:"apiKey,omitempty"`
	ExpiresAt          time.Time  `gorm:"column:api_key_expire" json:"apiKeyExpire"`
	Active             bool       `gorm:"default:false" json:"active"`
	RenewalToken       *string    `gorm:"index" json:"-"`
	RenewalTokenExpire *time.Time `json:"-"`
	CreatedAt          time.Time  `gorm:"not null" json:"createdAt"`
}

// Usable reports whether the key may authenticate requests at now.
func (k *APIKey) Usable(now time.Time) bool {
	return k.Active && now.Before(k.ExpiresAt)
}
