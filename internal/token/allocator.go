// Package token issues sequential consultation token identifiers.
package token

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Allocate formats the next token identifier given the number of tokens
// already issued: "T" plus the successor zero-padded to three digits.
// Sequences past 999 simply grow a fourth digit.
//
// Allocate is pure; persisting the record under the returned identifier
// before the next allocation observes the count is the caller's job.
// Use a Sequencer when multiple front-desk sessions allocate concurrently.
func Allocate(existingCount int) string {
	return fmt.Sprintf("T%03d", existingCount+1)
}

// Sequencer hands out token identifiers from a monotonic counter owned
// by Redis, so concurrent intakes can never observe the same count.
type Sequencer struct {
	client *redis.Client
	key    string
}

func NewSequencer(client *redis.Client, key string) *Sequencer {
	if key == "" {
		key = "frontdesk:token_seq"
	}
	return &Sequencer{client: client, key: key}
}

// Next atomically increments the counter and returns the formatted
// token identifier. The counter is global and never resets.
func (s *Sequencer) Next(ctx context.Context) (string, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to advance token sequence: %w", err)
	}
	return Allocate(int(n) - 1), nil
}

// Sync raises the counter to at least count, for bootstrapping the
// sequence from an existing store.
func (s *Sequencer) Sync(ctx context.Context, count int) error {
	cur, err := s.client.Get(ctx, s.key).Int()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read token sequence: %w", err)
	}
	if cur >= count {
		return nil
	}
	if err := s.client.Set(ctx, s.key, count, 0).Err(); err != nil {
		return fmt.Errorf("failed to sync token sequence: %w", err)
	}
	return nil
}
