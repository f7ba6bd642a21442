package catalog

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trivia-live-service/internal/domain"
)

// Loader fetches the question bank from a backing store (Postgres in
// production, a static set in demo mode).
type Loader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// Catalog caches the question bank with TTL to avoid repeated DB hits. The
// bank is small and read-only during a game, so the whole set is cached as one
// unit.
type Catalog struct {
	loader Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions map[int]domain.Question
	expiresAt time.Time
}

func New(loader Loader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Question resolves a question by ID, filling the cache on miss.
// Returns domain.ErrQuestionNotFound for unknown IDs.
func (c *Catalog) Question(ctx context.Context, id int) (domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if c.questions != nil && c.expiresAt.After(now) {
		q, ok := c.questions[id]
		c.mu.RUnlock()
		if !ok {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return q, nil
	}
	c.mu.RUnlock()

	_, err, _ := c.sf.Do("questions", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.questions != nil && c.expiresAt.After(now) {
			c.mu.RUnlock()
			return nil, nil
		}
		c.mu.RUnlock()

		loaded, err := c.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[int]domain.Question, len(loaded))
		for _, q := range loaded {
			byID[q.ID] = q
		}

		c.mu.Lock()
		c.questions = byID
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return domain.Question{}, err
	}

	c.mu.RLock()
	q, ok := c.questions[id]
	c.mu.RUnlock()
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

// StaticLoader is a loader backed by an in-memory slice (useful for tests/demos).
type StaticLoader struct {
	questions []domain.Question
}

func NewStaticLoader(questions []domain.Question) *StaticLoader {
	return &StaticLoader{questions: questions}
}

func (l *StaticLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	return l.questions, nil
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
