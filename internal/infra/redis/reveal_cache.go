package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"party-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Revealer resolves answers from a backing store (DB, upstream API).
type Revealer interface {
	Reveal(ctx context.Context, questionID string) (domain.RevealedAnswer, error)
}

// RevealCache caches revealed answers in Redis (one JSON value per question
// id) and falls back to the backing revealer on a cache miss. Concurrent
// misses for the same question are collapsed to a single lookup.
type RevealCache struct {
	client   *redis.Client
	revealer Revealer
	ttl      time.Duration
	sf       singleflight.Group
	rnd      *rand.Rand
}

func NewRevealCache(client *redis.Client, revealer Revealer, ttl time.Duration) *RevealCache {
	return &RevealCache{
		client:   client,
		revealer: revealer,
		ttl:      ttl,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *RevealCache) Reveal(ctx context.Context, questionID string) (domain.RevealedAnswer, error) {
	if answer, ok := c.cached(ctx, questionID); ok {
		return answer, nil
	}

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if answer, ok := c.cached(ctx, questionID); ok {
			return answer, nil
		}

		answer, err := c.revealer.Reveal(ctx, questionID)
		if err != nil {
			return domain.RevealedAnswer{}, err
		}

		if raw, err := json.Marshal(answer); err == nil {
			// best-effort cache write
			_ = c.client.Set(ctx, c.key(questionID), raw, c.ttlWithJitter()).Err()
		}
		return answer, nil
	})
	if err != nil {
		return domain.RevealedAnswer{}, err
	}
	return result.(domain.RevealedAnswer), nil
}

func (c *RevealCache) cached(ctx context.Context, questionID string) (domain.RevealedAnswer, bool) {
	raw, err := c.client.Get(ctx, c.key(questionID)).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return domain.RevealedAnswer{}, false
	}
	var answer domain.RevealedAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return domain.RevealedAnswer{}, false
	}
	return answer, true
}

func (c *RevealCache) key(questionID string) string {
	return "trivia:answer:" + questionID
}

func (c *RevealCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
