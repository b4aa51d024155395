// Package memory - in-memory session store с idle-эвикцией.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/session"
)

type entry struct {
	state      *domain.PartialState
	lastActive time.Time
}

type Store struct {
	mu       sync.RWMutex
	items    map[int64]entry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopped  bool
}

type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

func New(cfg Config) *Store {
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Store{
		items:    make(map[int64]entry),
		ttl:      cfg.TTL,
		now:      cfg.Now,
		stopChan: make(chan struct{}),
	}
	go s.sweep(cfg.SweepInterval)
	return s
}

func (s *Store) Get(_ context.Context, id int64) (*domain.PartialState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return nil, false, nil
	}
	if s.now().Sub(e.lastActive) > s.ttl {
		// запись пережила idle-таймаут - сессия умерла
		delete(s.items, id)
		return nil, false, nil
	}
	e.lastActive = s.now()
	s.items[id] = e
	return e.state.Clone(), true, nil
}

func (s *Store) Put(_ context.Context, id int64, st *domain.PartialState) error {
	s.mu.Lock()
	s.items[id] = entry{state: st.Clone(), lastActive: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *Store) Merge(ctx context.Context, id int64, d *domain.Delta, src domain.Source) (*domain.PartialState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok || s.now().Sub(e.lastActive) > s.ttl {
		e = entry{state: domain.NewPartialState()}
	}
	st := e.state.Clone()
	st.Merge(d, src)
	s.items[id] = entry{state: st, lastActive: s.now()}
	return st.Clone(), nil
}

func (s *Store) Clear(_ context.Context, id int64) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Len - число живых сессий, для метрик.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopChan)
	}
	s.mu.Unlock()
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *Store) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.items {
		if now.Sub(e.lastActive) > s.ttl {
			delete(s.items, id)
		}
	}
}

var _ session.Store = (*Store)(nil)
