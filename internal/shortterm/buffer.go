// Package shortterm implements the short-term memory tier: a Redis-backed,
// TTL-bounded list of recent turns, scoped per workspace+session the
// same way the teacher's Redis-backed caches scope keys per tenant.
package shortterm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Turn is a single chat turn kept in the short-term buffer.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Buffer is a Redis-backed per-session turn buffer with a sliding TTL.
type Buffer struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a Buffer against the given Redis address.
func New(addr, password string, db int, ttl time.Duration) *Buffer {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Buffer{client: client, ttl: ttl}
}

func (b *Buffer) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Buffer) Close() error {
	return b.client.Close()
}

func key(workspace, sessionID string) string {
	return fmt.Sprintf("shortterm:%s:%s", workspace, sessionID)
}

// Append pushes a turn onto the buffer and refreshes its TTL. The buffer is
// an unbounded Redis list; trimming to a window happens at read time via
// Recent, keeping Append a single fast RPUSH+EXPIRE round trip.
func (b *Buffer) Append(ctx context.Context, workspace, sessionID string, turn Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	k := key(workspace, sessionID)
	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, k, payload)
	pipe.Expire(ctx, k, b.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n of the most recent turns, oldest first.
func (b *Buffer) Recent(ctx context.Context, workspace, sessionID string, n int) ([]Turn, error) {
	if n <= 0 {
		n = 20
	}
	k := key(workspace, sessionID)
	raw, err := b.client.LRange(ctx, k, int64(-n), -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Count returns the number of turns currently buffered for a session.
func (b *Buffer) Count(ctx context.Context, workspace, sessionID string) (int, error) {
	n, err := b.client.LLen(ctx, key(workspace, sessionID)).Result()
	return int(n), err
}

// Clear drops the buffer for a session.
func (b *Buffer) Clear(ctx context.Context, workspace, sessionID string) error {
	return b.client.Del(ctx, key(workspace, sessionID)).Err()
}
