package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisSaveAttempts = 3

// RedisStore keeps one JSON snapshot per user under "cart:<userID>". Expiry
// is delegated to Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type redisRecord struct {
	Version   uint64     `json:"version"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewRedisStore accepts either a redis:// URL or a bare host:port.
func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		}
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), ttl)
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "cart:"}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	rec, err := decodeRedisRecord(raw)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		UserID:    userID,
		Version:   rec.Version,
		Items:     rec.Items,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Save writes the snapshot inside a WATCH transaction so that a concurrent
// writer holding a newer version is never overwritten.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	key := s.key(snap.UserID)
	data, err := encodeRedisRecord(snap)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			prev, err := decodeRedisRecord(cur)
			if err == nil && prev.Version >= snap.Version {
				return ErrStaleSnapshot
			}
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < redisSaveAttempts; i++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("redis save cart v%d: %w", snap.Version, err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts expired keys itself.
func (s *RedisStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func encodeRedisRecord(snap Snapshot) ([]byte, error) {
	items := snap.Items
	if items == nil {
		items = []LineItem{}
	}
	data, err := json.Marshal(redisRecord{Version: snap.Version, Items: items, UpdatedAt: snap.UpdatedAt})
	if err != nil {
		return nil, fmt.Errorf("encode cart record: %w", err)
	}
	return data, nil
}

func decodeRedisRecord(raw []byte) (redisRecord, error) {
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return redisRecord{}, fmt.Errorf("decode cart record: %w", err)
	}
	return rec, nil
}
