package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps sessions in Redis with a TTL per key.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore creates a store on top of client.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = "rebar:session:"
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisSessionStore) key(chatID int64) string {
	return r.prefix + strconv.FormatInt(chatID, 10)
}

func (r *RedisSessionStore) Get(ctx context.Context, chatID int64) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Put(ctx context.Context, s *Session) error {
	cp := *s
	cp.UpdatedAt = time.Now()
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ChatID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, chatID int64) error {
	if err := r.client.Del(ctx, r.key(chatID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep counts live sessions. Redis expires keys on its own.
func (r *RedisSessionStore) Sweep(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}
