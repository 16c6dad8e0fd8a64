package security

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

var ErrEmptySecret = errors.New("secret is empty")

// SecretSource fetches a secret value by name
type SecretSource interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// SecretCache fetches every secret once and keeps it for the lifetime of the
// process. Failed fetches are not cached. Rotated secrets are not picked up
// until restart.
type SecretCache struct {
	src    SecretSource
	group  singleflight.Group
	mu     sync.RWMutex
	values map[string]string
}

func NewSecretCache(src SecretSource) *SecretCache {
	return &SecretCache{
		src:    src,
		values: make(map[string]string),
	}
}

func (c *SecretCache) cached(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[name]
	return v, ok
}

// Get returns the named secret. Concurrent first calls share one fetch.
func (c *SecretCache) Get(ctx context.Context, name string) (string, error) {
	if v, ok := c.cached(name); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		if v, ok := c.cached(name); ok {
			return v, nil
		}

		v, err := c.src.Fetch(ctx, name)
		if err != nil {
			return "", fmt.Errorf("failed to fetch secret %s, %w", name, err)
		}
		if v == "" {
			return "", fmt.Errorf("secret %s, %w", name, ErrEmptySecret)
		}

		c.mu.Lock()
		c.values[name] = v
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// StaticSource serves secrets from configuration. Used for local setups and
// tests.
type StaticSource map[string]string

func (s StaticSource) Fetch(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", fmt.Errorf("secret %s not configured", name)
	}
	return v, nil
}
