package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps the persisted session id of one player in Redis.
// The slot expires after ttl of inactivity; a zero ttl keeps it forever.
type SessionStore struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, owner string, ttl time.Duration) *SessionStore {
	if owner == "" {
		owner = "default"
	}
	return &SessionStore{client: client, owner: owner, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, id != "", nil
}

func (s *SessionStore) Set(ctx context.Context, sessionID string) error {
	return s.client.Set(ctx, s.key(), sessionID, s.ttl).Err()
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key()).Err()
}

func (s *SessionStore) key() string {
	return "quiz:session:" + s.owner
}
