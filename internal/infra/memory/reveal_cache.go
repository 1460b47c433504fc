package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"party-trivia-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Revealer resolves answers from a backing store (DB, upstream API).
type Revealer interface {
	Reveal(ctx context.Context, questionID string) (domain.RevealedAnswer, error)
}

// RevealCache caches revealed answers with a TTL so repeated rounds over
// the same question batch don't hit the backing store again.
type RevealCache struct {
	revealer Revealer
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group
	rnd      *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedAnswer
}

type cachedAnswer struct {
	answer    domain.RevealedAnswer
	expiresAt time.Time
}

func NewRevealCache(revealer Revealer, ttl time.Duration) *RevealCache {
	return &RevealCache{
		revealer: revealer,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedAnswer),
	}
}

func (c *RevealCache) Reveal(ctx context.Context, questionID string) (domain.RevealedAnswer, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[questionID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.answer, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[questionID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.answer, nil
		}
		c.mu.RUnlock()

		answer, err := c.revealer.Reveal(ctx, questionID)
		if err != nil {
			return domain.RevealedAnswer{}, err
		}

		c.mu.Lock()
		c.cache[questionID] = cachedAnswer{
			answer:    answer,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return answer, nil
	})
	if err != nil {
		return domain.RevealedAnswer{}, err
	}
	return result.(domain.RevealedAnswer), nil
}

func (c *RevealCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
