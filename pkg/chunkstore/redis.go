package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buspulse/buspulse/pkg/chunk"
)

const (
	redisChunkKeyPrefix = "buspulse:chunk:"
	redisChunkIndexKey  = "buspulse:chunks"
)

// RedisStore keeps chunk blobs under buspulse:chunk:<ts> with a sorted set
// (buspulse:chunks, scored by timestamp) for ListSince/Purge discovery.
// A per-blob TTL acts as a retention safety net if purges stop running.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Ping verifies connectivity, for fail-fast startup checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Put(ctx context.Context, c *chunk.Chunk) error {
	ts := c.Stats.Timestamp
	blob := chunk.Encode(c)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisChunkKey(ts), blob, s.ttl)
	pipe.ZAdd(ctx, redisChunkIndexKey, redis.Z{
		Score:  float64(ts),
		Member: strconv.FormatUint(ts, 10),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put chunk %d: %w", ts, err)
	}
	return nil
}

func (s *RedisStore) ListSince(ctx context.Context, watermark uint64) ([]uint64, error) {
	members, err := s.client.ZRangeByScore(ctx, redisChunkIndexKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatUint(watermark, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list chunks: %w", err)
	}

	out := make([]uint64, 0, len(members))
	for _, m := range members {
		ts, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, ts)
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, ts uint64) (*chunk.Chunk, error) {
	data, err := s.client.Get(ctx, redisChunkKey(ts)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, ts)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get chunk %d: %w", ts, err)
	}
	c, err := chunk.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", ts, err)
	}
	return c, nil
}

func (s *RedisStore) PurgeOlderThan(ctx context.Context, cutoff uint64) error {
	max := "(" + strconv.FormatUint(cutoff, 10)

	members, err := s.client.ZRangeByScore(ctx, redisChunkIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return fmt.Errorf("redis list expired chunks: %w", err)
	}

	var errs []error
	for _, m := range members {
		ts, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		if err := s.client.Del(ctx, redisChunkKey(ts)).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis remove chunk %d: %w", ts, err))
		}
	}
	if err := s.client.ZRemRangeByScore(ctx, redisChunkIndexKey, "-inf", max).Err(); err != nil {
		errs = append(errs, fmt.Errorf("redis trim chunk index: %w", err))
	}
	return errors.Join(errs...)
}

func redisChunkKey(ts uint64) string {
	return redisChunkKeyPrefix + strconv.FormatUint(ts, 10)
}
