package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces the undo lists in Redis.
const KeyPrefix = "calprompt:undo:"

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisClient opens a client for the undo store.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// RedisStore keeps each calendar's stack in a Redis list, newest at the head.
type RedisStore struct {
	rdb redis.Cmdable
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Key returns the list key for a calendar.
func Key(calendarID string) string {
	return KeyPrefix + calendarID
}

func encodeEntry(e Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode undo entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return e, nil
}

// Push stores e as the newest entry and trims the list to Capacity in the
// same transaction.
func (r *RedisStore) Push(ctx context.Context, calendarID string, e Entry) error {
	data, err := encodeEntry(e)
	if err != nil {
		return err
	}
	key := Key(calendarID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, data)
		p.LTrim(ctx, key, 0, Capacity-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push undo entry: %w", err)
	}
	return nil
}

// Pop removes the head of the list. An unreadable head is still consumed.
func (r *RedisStore) Pop(ctx context.Context, calendarID string) (Entry, bool, error) {
	data, err := r.rdb.LPop(ctx, Key(calendarID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to pop undo entry: %w", err)
	}
	e, err := decodeEntry(data)
	if err != nil {
		return Entry{}, true, err
	}
	return e, true, nil
}

// Len returns the number of entries kept for the calendar.
func (r *RedisStore) Len(ctx context.Context, calendarID string) (int, error) {
	n, err := r.rdb.LLen(ctx, Key(calendarID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read undo stack length: %w", err)
	}
	return int(n), nil
}

// Clear drops the calendar's whole stack.
func (r *RedisStore) Clear(ctx context.Context, calendarID string) error {
	if err := r.rdb.Del(ctx, Key(calendarID)).Err(); err != nil {
		return fmt.Errorf("failed to clear undo stack: %w", err)
	}
	return nil
}
