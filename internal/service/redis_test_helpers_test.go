package service

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newRedisClientForTest starts a miniredis server and a client that fails
// fast instead of retrying against injected errors.
func newRedisClientForTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newRedisMissCacheForTest(t *testing.T, prefix string) (*miniredis.Miniredis, *RedisNegativeLookupCacheStore) {
	t.Helper()

	mr, client := newRedisClientForTest(t)
	return mr, NewRedisNegativeLookupCacheStore(client, prefix)
}
