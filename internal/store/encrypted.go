package store

import (
	"context"
	"fmt"
	"time"

	"bitwise74/account-api/internal/model"
)

type Cipher interface {
	Encrypt(ctx context.Context, plain string) (string, error)
	Decrypt(ctx context.Context, cipherText string) (string, error)
}

// EncryptedAPIKeys keeps key values encrypted at rest. Writes setting
// model.FieldAPIKey are encrypted before they reach the backend and every key
// read back is decrypted.
type EncryptedAPIKeys struct {
	inner  APIKeys
	cipher Cipher
}

func NewEncryptedAPIKeys(inner APIKeys, c Cipher) *EncryptedAPIKeys {
	return &EncryptedAPIKeys{inner: inner, cipher: c}
}

func (e *EncryptedAPIKeys) ByUser(ctx context.Context, userID string) (*model.APIKeySet, error) {
	set, err := e.inner.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := e.decryptSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

func (e *EncryptedAPIKeys) List(ctx context.Context) ([]model.APIKeySet, error) {
	sets, err := e.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sets {
		if err := e.decryptSet(ctx, &sets[i]); err != nil {
			return nil, err
		}
	}
	return sets, nil
}

func (e *EncryptedAPIKeys) Push(ctx context.Context, userID string, k *model.APIKey) error {
	stored := *k
	if stored.Key != "" {
		enc, err := e.cipher.Encrypt(ctx, stored.Key)
		if err != nil {
			return fmt.Errorf("failed to encrypt api key, %w", err)
		}
		stored.Key = enc
	}

	if err := e.inner.Push(ctx, userID, &stored); err != nil {
		return err
	}

	k.ID = stored.ID
	k.UserID = stored.UserID
	return nil
}

func (e *EncryptedAPIKeys) UpdateKey(ctx context.Context, userID, keyID string, p *Patch) (*model.APIKey, error) {
	if v, ok := p.Set[model.FieldAPIKey].(string); ok && v != "" {
		enc, err := e.cipher.Encrypt(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt api key, %w", err)
		}

		// Copy so the caller's patch keeps the plaintext
		cp := &Patch{Set: make(map[string]any, len(p.Set)), Unset: p.Unset}
		for f, val := range p.Set {
			cp.Set[f] = val
		}
		cp.Set[model.FieldAPIKey] = enc
		p = cp
	}

	k, err := e.inner.UpdateKey(ctx, userID, keyID, p)
	if err != nil {
		return nil, err
	}
	if err := e.decryptKey(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

func (e *EncryptedAPIKeys) ByRenewalToken(ctx context.Context, userID, hashed string, now time.Time) (*model.APIKey, error) {
	k, err := e.inner.ByRenewalToken(ctx, userID, hashed, now)
	if err != nil {
		return nil, err
	}
	if err := e.decryptKey(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

func (e *EncryptedAPIKeys) Pull(ctx context.Context, userID, keyID string) (int, error) {
	return e.inner.Pull(ctx, userID, keyID)
}

func (e *EncryptedAPIKeys) DeleteByUser(ctx context.Context, userID string) error {
	return e.inner.DeleteByUser(ctx, userID)
}

func (e *EncryptedAPIKeys) ClearExpiredRenewals(ctx context.Context, now time.Time) (int64, error) {
	return e.inner.ClearExpiredRenewals(ctx, now)
}

func (e *EncryptedAPIKeys) decryptSet(ctx context.Context, set *model.APIKeySet) error {
	for i := range set.Keys {
		if err := e.decryptKey(ctx, &set.Keys[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *EncryptedAPIKeys) decryptKey(ctx context.Context, k *model.APIKey) error {
	if k == nil || k.Key == "" {
		return nil
	}

	plain, err := e.cipher.Decrypt(ctx, k.Key)
	if err != nil {
		return fmt.Errorf("failed to decrypt api key %s, %w", k.ID, err)
	}
	k.Key = plain
	return nil
}
