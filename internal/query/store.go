package query

import (
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Store is the single writer of the task-list query state. Every successful
// mutation publishes the new snapshot to subscribers, in mutation order.
type Store struct {
	codec  Codec
	logger *zap.Logger

	// pubMu serializes mutate+publish so subscribers never observe
	// snapshots out of order.
	pubMu sync.Mutex

	mu   sync.RWMutex
	cur  FilterSet
	subs map[int]func(FilterSet)
	next int
}

// NewStore builds a store whose initial state is parsed from raw, typically
// the query string of a shared URL.
func NewStore(codec Codec, raw string, logger *zap.Logger) *Store {
	return &Store{
		codec:  codec,
		logger: logger,
		cur:    codec.Parse(raw),
		subs:   make(map[int]func(FilterSet)),
	}
}

func (s *Store) Codec() Codec {
	return s.codec
}

// Get returns the current snapshot.
func (s *Store) Get() FilterSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Canonical returns the canonical query string of the current snapshot.
func (s *Store) Canonical() string {
	return s.codec.Canonical(s.Get())
}

// Set writes one key. Setting a no-op value removes the key; setting any
// key other than page resets page to 1.
func (s *Store) Set(key, value string) error {
	return s.mutate(func(f *FilterSet) error {
		if err := assign(f, s.codec.defaults, key, value); err != nil {
			return err
		}
		if key != KeyPage {
			f.Page = 1
		}
		return nil
	})
}

func (s *Store) SetPage(page int) error {
	return s.Set(KeyPage, strconv.Itoa(page))
}

// Clear resets every parameter to its default.
func (s *Store) Clear() {
	_ = s.mutate(func(f *FilterSet) error {
		*f = s.codec.defaults
		return nil
	})
}

// Replace loads the state from a query string, as when the user navigates
// to a shared link.
func (s *Store) Replace(raw string) {
	_ = s.mutate(func(f *FilterSet) error {
		*f = s.codec.Parse(raw)
		return nil
	})
}

// Subscribe registers fn for every published snapshot. The returned func
// removes the subscription. fn runs synchronously on the mutating goroutine
// and must not call back into the store's mutators.
func (s *Store) Subscribe(fn func(FilterSet)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) mutate(fn func(*FilterSet) error) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	next := s.cur
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		s.logger.Debug("query update rejected", zap.Error(err))
		return err
	}
	s.cur = next
	subs := make([]func(FilterSet), 0, len(s.subs))
	for id := 0; id < s.next; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	s.logger.Debug("query updated", zap.String("query", s.codec.Canonical(next)))
	for _, sub := range subs {
		sub(next)
	}
	return nil
}
