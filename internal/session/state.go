package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StateManager mirrors live session snapshots into Redis so an operator
// (or a restarted process) can inspect in-flight sessions. Snapshots are
// ephemeral; the Postgres row is the durable record.
type StateManager struct {
	redis  *redis.Client
	logger zerolog.Logger
	ttl    time.Duration
}

var _ StateStore = (*StateManager)(nil)

func NewStateManager(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *StateManager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &StateManager{
		redis:  client,
		logger: logger,
		ttl:    ttl,
	}
}

func stateKey(sessionID string) string {
	return fmt.Sprintf("session:state:%s", sessionID)
}

func (s *StateManager) StoreSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.redis.Set(ctx, stateKey(snap.SessionID), data, s.ttl).Err()
}

// GetSnapshot returns the stored snapshot, or nil when none exists.
func (s *StateManager) GetSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, stateKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *StateManager) DeleteSnapshot(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, stateKey(sessionID)).Err()
}
