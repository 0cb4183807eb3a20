package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cartflow/pkg/logger"
)

// ErrNoSession is returned when a store is requested without a session id.
var ErrNoSession = errors.New("missing session id")

// Registry defaults.
const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 10000
)

// RegistryOption tunes a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL sets how long an unused store stays cached. Zero disables
// idle eviction.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

// WithMaxSessions bounds the number of cached stores. Zero means unbounded.
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) { r.maxSessions = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

type session struct {
	store    *Store
	lastUsed time.Time
}

// Registry hands out one initialized Store per session. Stores share the
// catalog, snapshot slot, and notifier the registry was built with.
//
// Stores are a cache over the snapshot slot: an evicted session is restored
// from its snapshot on the next Get.
type Registry struct {
	prefix    string
	catalog   Catalog
	snapshots Snapshots
	notifier  Notifier
	log       *logger.Logger

	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time

	loads singleflight.Group

	mu       sync.Mutex
	sessions map[string]*session
}

// NewRegistry creates a registry whose snapshot keys start with prefix.
func NewRegistry(prefix string, catalog Catalog, snapshots Snapshots, notifier Notifier, log *logger.Logger, opts ...RegistryOption) *Registry {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if log == nil {
		log = logger.NewNop()
	}
	r := &Registry{
		prefix:      prefix,
		catalog:     catalog,
		snapshots:   snapshots,
		notifier:    notifier,
		log:         log,
		idleTTL:     DefaultIdleTTL,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the snapshot key used for sessionID.
func (r *Registry) Key(sessionID string) string {
	return r.prefix + ":" + sessionID
}

// Get returns the store for sessionID, restoring it from its snapshot on
// first use. Concurrent first uses of one session share a single load; the
// registry lock is never held while loading.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	if s := r.cached(sessionID); s != nil {
		return s, nil
	}

	v, err, _ := r.loads.Do(sessionID, func() (any, error) {
		if s := r.cached(sessionID); s != nil {
			return s, nil
		}
		s := NewStore(r.Key(sessionID), r.catalog, r.snapshots, r.notifier, r.log)
		if err := s.Initialize(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		r.sessions[sessionID] = &session{store: s, lastUsed: r.now()}
		r.evictOldestLocked()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) cached(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sessionID]; ok {
		e.lastUsed = r.now()
		return e.store
	}
	return nil
}

// evictOldestLocked drops least recently used sessions until the registry
// is within maxSessions.
func (r *Registry) evictOldestLocked() {
	if r.maxSessions <= 0 {
		return
	}
	for len(r.sessions) > r.maxSessions {
		var oldest string
		var at time.Time
		for id, e := range r.sessions {
			if oldest == "" || e.lastUsed.Before(at) {
				oldest, at = id, e.lastUsed
			}
		}
		delete(r.sessions, oldest)
	}
}

// Sweep drops sessions idle for longer than the idle TTL and reports how
// many were removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.log.Debug(ctx, "evicted idle carts", "count", n, "remaining", r.Len())
			}
		}
	}
}

// Len reports how many sessions are loaded.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
