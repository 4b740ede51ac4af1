package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache key pattern: presign:{storage_path}, expiring before the URL does.

// DefaultPresignCacheTTL is used when no TTL is configured.
const DefaultPresignCacheTTL = 5 * time.Minute

// PresignCache keeps presigned download URLs so repeated downloads of the
// same object reuse one signature.
type PresignCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewPresignCache caches URLs for ttl. Pass less than the presign lifetime
// so a cached URL is never handed out close to expiry.
func NewPresignCache(client *goredis.Client, ttl time.Duration) *PresignCache {
	if ttl <= 0 {
		ttl = DefaultPresignCacheTTL
	}
	return &PresignCache{client: client, ttl: ttl}
}

func PresignKey(storagePath string) string {
	return "presign:" + storagePath
}

// GetURL returns the cached URL for storagePath. A miss is ("", false, nil).
func (c *PresignCache) GetURL(ctx context.Context, storagePath string) (string, bool, error) {
	url, err := c.client.Get(ctx, PresignKey(storagePath)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func (c *PresignCache) SetURL(ctx context.Context, storagePath, url string) error {
	return c.client.Set(ctx, PresignKey(storagePath), url, c.ttl).Err()
}

func (c *PresignCache) Invalidate(ctx context.Context, storagePath string) error {
	return c.client.Del(ctx, PresignKey(storagePath)).Err()
}

func (c *PresignCache) TTL() time.Duration {
	return c.ttl
}
