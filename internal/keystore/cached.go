package keystore

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/c-pro/geche"
)

const cachedKey = "private_key"

// Cached keeps a loaded key for ttl so that bursts of provisioning requests
// don't re-read and re-parse the PEM file every time. Failed loads are not
// cached.
type Cached struct {
	next  KeyStore
	cache geche.Geche[string, *rsa.PrivateKey]
}

func NewCached(ctx context.Context, next KeyStore, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: geche.NewMapTTLCache[string, *rsa.PrivateKey](ctx, ttl, time.Minute),
	}
}

func (c *Cached) Load() (*rsa.PrivateKey, error) {
	if key, err := c.cache.Get(cachedKey); err == nil {
		return key, nil
	}

	key, err := c.next.Load()
	if err != nil {
		return nil, err
	}
	c.cache.Set(cachedKey, key)
	return key, nil
}
