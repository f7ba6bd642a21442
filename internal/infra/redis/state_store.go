package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-live-service/internal/domain"
)

const roundKey = "trivia:round"

// StateStore keeps the authoritative round record and per-question vote
// counters in Redis. All mutations go through single Redis commands (SET,
// INCR, DEL), so multiple server instances can share it without any local
// locking. Both the round record and the counters carry a TTL as a safety net
// against rounds nobody ever closes.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

// Get reads the round record. The second return is false when no round is stored.
func (s *StateStore) Get(ctx context.Context) (domain.RoundState, bool, error) {
	raw, err := s.client.Get(ctx, roundKey).Result()
	if errors.Is(err, redis.Nil) {
		return domain.RoundState{}, false, nil
	}
	if err != nil {
		return domain.RoundState{}, false, fmt.Errorf("get round state: %w", err)
	}
	var state domain.RoundState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return domain.RoundState{}, false, fmt.Errorf("unmarshal round state: %w", err)
	}
	return state, true, nil
}

// Set overwrites the round record with a fresh TTL.
func (s *StateStore) Set(ctx context.Context, state domain.RoundState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal round state: %w", err)
	}
	if err := s.client.Set(ctx, roundKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set round state: %w", err)
	}
	return nil
}

// Clear removes the round record. Clearing an absent record is a no-op.
func (s *StateStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, roundKey).Err(); err != nil {
		return fmt.Errorf("clear round state: %w", err)
	}
	return nil
}

// Increment bumps the vote counter for a question and returns the new total.
func (s *StateStore) Increment(ctx context.Context, questionID int) (int64, error) {
	total, err := s.client.Incr(ctx, counterKey(questionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment vote counter: %w", err)
	}
	// refresh the safety-net expiry; best effort
	_ = s.client.Expire(ctx, counterKey(questionID), s.ttl).Err()
	return total, nil
}

// Reset zeroes the vote counter for a question, with the same TTL as the round.
func (s *StateStore) Reset(ctx context.Context, questionID int) error {
	if err := s.client.Set(ctx, counterKey(questionID), 0, s.ttl).Err(); err != nil {
		return fmt.Errorf("reset vote counter: %w", err)
	}
	return nil
}

// Current reads the vote counter for a question; absent counters read as zero.
func (s *StateStore) Current(ctx context.Context, questionID int) (int64, error) {
	raw, err := s.client.Get(ctx, counterKey(questionID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read vote counter: %w", err)
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse vote counter: %w", err)
	}
	return total, nil
}

func counterKey(questionID int) string {
	return "trivia:votes:" + strconv.Itoa(questionID)
}
