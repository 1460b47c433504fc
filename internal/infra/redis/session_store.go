package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"party-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps one JSON session record per device key in Redis, the
// durable analog of a browser's local storage. Records that no longer
// unmarshal are reported absent rather than failing the resume.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, key string) (domain.Session, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		log.Printf("session record %q unreadable: %v (treating as absent)", key, err)
		return domain.Session{}, false, nil
	}
	return session, true, nil
}

func (s *SessionStore) Save(ctx context.Context, key string, session domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), raw, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *SessionStore) key(deviceKey string) string {
	return "trivia:session:" + deviceKey
}
