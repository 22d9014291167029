package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linnemanlabs/ashabot/internal/content"
)

const shardCount = 32

// Store holds one Session per user ID. Access to a session is exclusive for
// the duration of a Do call; sessions of different users never contend on
// the same lock except briefly on their shard's map.
type Store struct {
	shards  [shardCount]shard
	ttl     time.Duration
	now     func() time.Time
	onEvict func(n int)
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// entry guards one session. refs counts callers inside or waiting on Do and
// is only touched under the shard lock; entries with refs > 0 are never
// evicted.
type entry struct {
	mu   sync.Mutex
	refs int
	sess Session
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEvictHook registers a callback invoked after each sweep that evicted
// at least one session.
func WithEvictHook(fn func(n int)) Option {
	return func(s *Store) { s.onEvict = fn }
}

// NewStore creates a Store evicting sessions idle for longer than ttl.
// A ttl of zero disables eviction.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{ttl: ttl, now: time.Now}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*entry)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Do runs fn with exclusive access to userID's session, creating it on first
// contact. The lock is released on every exit path, including panics in fn.
func (s *Store) Do(userID string, fn func(*Session)) {
	sh, e := s.acquire(userID)
	defer s.release(sh, e)

	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.sess)
	e.sess.LastSeen = s.now()
}

// Peek returns a copy of userID's session without creating one.
func (s *Store) Peek(userID string) (Session, bool) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	e, ok := sh.entries[userID]
	if ok {
		e.refs++
	}
	sh.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	defer s.release(sh, e)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Sweep evicts sessions idle for longer than the TTL and not in use. It
// returns the number evicted.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, e := range sh.entries {
			if e.refs == 0 && e.sess.LastSeen.Before(cutoff) {
				delete(sh.entries, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	if evicted > 0 && s.onEvict != nil {
		s.onEvict(evicted)
	}
	return evicted
}

// Run sweeps every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

func (s *Store) acquire(userID string) (*shard, *entry) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[userID]
	if !ok {
		now := s.now()
		e = &entry{sess: Session{
			ID:        uuid.NewString(),
			UserID:    userID,
			State:     StateNone,
			Language:  content.EN,
			CreatedAt: now,
			LastSeen:  now,
		}}
		sh.entries[userID] = e
	}
	e.refs++
	return sh, e
}

func (s *Store) release(sh *shard, e *entry) {
	sh.mu.Lock()
	e.refs--
	sh.mu.Unlock()
}

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.shards[h.Sum32()%shardCount]
}
