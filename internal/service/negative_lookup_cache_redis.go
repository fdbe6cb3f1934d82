package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultMissKeyPrefix = "auth_negative_lookup"

// RedisNegativeLookupCacheStore shares fingerprint misses across processes.
//
// Lookup keys are token fingerprints (prefixed with the user ID for access
// lookups) and are hashed once more before they become Redis keys, so no
// fingerprint is readable from the keyspace. Each namespace has a sorted-set
// index scored by entry expiry; it drives namespace invalidation and the live
// entry count without a keyspace scan.
type RedisNegativeLookupCacheStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisNegativeLookupCacheStore(client redis.UniversalClient, prefix string) *RedisNegativeLookupCacheStore {
	if prefix == "" {
		prefix = defaultMissKeyPrefix
	}
	return &RedisNegativeLookupCacheStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisNegativeLookupCacheStore) Get(ctx context.Context, namespace, key string) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.dataKey(namespace, key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Set records a miss for ttl. The index TTL is refreshed on every write and
// outlives the entry by a minute; callers use one TTL per namespace.
func (s *RedisNegativeLookupCacheStore) Set(ctx context.Context, namespace, key string, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	dataKey := s.dataKey(namespace, key)
	indexKey := s.indexKey(namespace)
	expiresAt := s.now().Add(ttl)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, dataKey, "1", ttl)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(expiresAt.UnixMilli()), Member: dataKey})
		pipe.ZRemRangeByScore(ctx, indexKey, "-inf", s.nowScore())
		pipe.Expire(ctx, indexKey, ttl+time.Minute)
		return nil
	})
	return err
}

// Count reports the live misses held for namespace.
func (s *RedisNegativeLookupCacheStore) Count(ctx context.Context, namespace string) (int64, error) {
	if s.client == nil {
		return 0, nil
	}
	return s.client.ZCount(ctx, s.indexKey(namespace), "("+s.nowScore(), "+inf").Result()
}

func (s *RedisNegativeLookupCacheStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	if s.client == nil {
		return nil
	}
	indexKey := s.indexKey(namespace)
	keys, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, indexKey)
		return nil
	})
	return err
}

func (s *RedisNegativeLookupCacheStore) nowScore() string {
	return strconv.FormatInt(s.now().UnixMilli(), 10)
}

func (s *RedisNegativeLookupCacheStore) dataKey(namespace, key string) string {
	return s.prefix + ":miss:" + normalizeToken(namespace) + ":" + hashToken(key)
}

func (s *RedisNegativeLookupCacheStore) indexKey(namespace string) string {
	return s.prefix + ":index:" + normalizeToken(namespace)
}
