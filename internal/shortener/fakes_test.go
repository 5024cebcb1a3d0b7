package shortener

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"shortlink/models"
)

var errBoom = errors.New("connection refused")

// fakeStore is an in-memory LinkStore with call counters and error injection.
type fakeStore struct {
	mu    sync.Mutex
	links map[string]*models.ShortLink

	findCalls   atomic.Int32
	createCalls atomic.Int32
	incrCalls   atomic.Int32

	findErr error
	incrErr error
	// beforeCreate runs inside CreateUnique before the uniqueness check,
	// simulating a concurrent writer.
	beforeCreate func(code string)
	// findStarted and findRelease, when set, hold FindByCode until release or
	// until its context ends.
	findStarted chan struct{}
	findRelease chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{links: make(map[string]*models.ShortLink)}
}

func (s *fakeStore) put(link models.ShortLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := link
	s.links[l.ShortCode] = &l
}

func (s *fakeStore) clicks(code string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.links[code]; ok {
		return l.Clicks
	}
	return -1
}

func (s *fakeStore) FindByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	s.findCalls.Add(1)
	if s.findRelease != nil {
		s.findStarted <- struct{}{}
		select {
		case <-s.findRelease:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *fakeStore) CreateUnique(_ context.Context, link *models.ShortLink) error {
	s.createCalls.Add(1)
	if s.beforeCreate != nil {
		s.beforeCreate(link.ShortCode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.ShortCode]; ok {
		return ErrCodeConflict
	}
	cp := *link
	s.links[link.ShortCode] = &cp
	return nil
}

func (s *fakeStore) IncrementClicks(_ context.Context, code string, by int64) (*models.ShortLink, error) {
	s.incrCalls.Add(1)
	if s.incrErr != nil {
		return nil, s.incrErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok {
		return nil, ErrRecordNotFound
	}
	l.Clicks += by
	cp := *l
	return &cp, nil
}

func (s *fakeStore) DeleteByCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[code]; !ok {
		return ErrRecordNotFound
	}
	delete(s.links, code)
	return nil
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID string) ([]models.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ShortLink
	for _, l := range s.links {
		if l.OwnerID != nil && *l.OwnerID == ownerID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// fakeCache is an in-memory Cache that records TTLs and can fail on demand.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration

	getErr error
	setErr error
	delErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	if c.delErr != nil {
		return c.delErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	delete(c.ttls, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// countingSink records hit-path clicks without touching a store.
type countingSink struct {
	mu    sync.Mutex
	codes []string
}

func (s *countingSink) Record(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// sequenceGenerator returns the given codes in order, then repeats the last one.
func sequenceGenerator(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func(length int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrString(s string) *string { return &s }
