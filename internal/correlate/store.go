// Package correlate holds the pending RADIUS transactions between an
// Access-Request and its final answer.
package correlate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"firestige.xyz/eapsniffer/internal/core"
)

const (
	DefaultTTL             = 30 * time.Second
	DefaultCleanupInterval = 10 * time.Second
)

// ExpireFunc is called once for every entry that expired without being taken.
type ExpireFunc func(key string, party core.Party)

type entry struct {
	party core.Party
	taken atomic.Bool
}

// Store maps transaction keys to parties with a bounded lifetime.
// Put and Take are safe for concurrent use; at most one Take per Put succeeds.
type Store struct {
	mu    sync.Mutex
	items *cache.Cache

	onExpire atomic.Pointer[ExpireFunc]
}

// NewStore creates a store. A zero ttl selects DefaultTTL; a zero cleanup
// interval selects DefaultCleanupInterval.
func NewStore(ttl, cleanup time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanup <= 0 {
		cleanup = DefaultCleanupInterval
	}

	s := &Store{items: cache.New(ttl, cleanup)}
	s.items.OnEvicted(s.evicted)
	return s
}

// OnExpire installs fn as the expiry hook, replacing any previous one.
func (s *Store) OnExpire(fn ExpireFunc) {
	if fn == nil {
		s.onExpire.Store(nil)
		return
	}
	s.onExpire.Store(&fn)
}

// Put records party for key, overwriting any pending entry.
func (s *Store) Put(key Key, party core.Party) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.SetDefault(key.String(), &entry{party: party})
}

// Take removes and returns the party pending for key.
// Entries past their TTL are reported as absent.
func (s *Store) Take(key Key) (core.Party, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	v, ok := s.items.Get(k)
	if !ok {
		return core.Party{}, false
	}
	e := v.(*entry)
	e.taken.Store(true)
	s.items.Delete(k)
	return e.party, true
}

// Len returns the number of stored entries, including expired entries
// the janitor has not swept yet.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

// Flush drops every pending entry without invoking the expiry hook.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Flush()
}

// DeleteExpired sweeps expired entries now instead of waiting for the janitor.
func (s *Store) DeleteExpired() {
	s.items.DeleteExpired()
}

func (s *Store) evicted(key string, v interface{}) {
	e, ok := v.(*entry)
	if !ok || e.taken.Load() {
		return
	}
	if fn := s.onExpire.Load(); fn != nil {
		(*fn)(key, e.party)
	}
}
