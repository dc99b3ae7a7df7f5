package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetch produces a fresh value on a cache miss.
type Fetch func(ctx context.Context) ([]byte, error)

// Recorder mirrors cache activity into metrics. observe.Metrics
// satisfies it.
type Recorder interface {
	RecordCacheLookup(ctx context.Context, category string, hit bool)
	RecordEviction(ctx context.Context, category, scope string, n int)
}

// Entry is one cached result.
type Entry struct {
	Key       string
	Value     []byte
	Category  Category
	Scope     Scope
	CreatedAt time.Time
	TTL       time.Duration
}

// ExpiresAt returns the instant the entry goes stale.
func (e *Entry) ExpiresAt() time.Time { return e.CreatedAt.Add(e.TTL) }

func (e *Entry) fresh(now time.Time) bool { return now.Before(e.ExpiresAt()) }

// Stats is a snapshot of manager counters.
type Stats struct {
	Hits            int64
	Misses          int64
	Fetches         int64
	Coalesced       int64
	FetchErrors     int64
	Sets            int64
	Expired         int64
	ScopedEvictions int64
	WideEvictions   int64
	StaleDiscards   int64
	Entries         int
	PerCategory     map[Category]int
}

// HitRatio returns hits / (hits + misses), or 0 with no lookups.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// flight tracks one in-progress fetch so invalidation can mark it stale.
type flight struct {
	category Category
	scope    Scope
	stale    bool
}

// waiters is the context shared fetches for one key run under. It ends
// when the last caller waiting on the key leaves, never before.
type waiters struct {
	ctx    context.Context
	cancel context.CancelFunc
	n      int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRecorder mirrors lookups and evictions into r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.rec = r }
}

// WithPolicy overrides the policy of one category.
func WithPolicy(c Category, p Policy) Option {
	return func(m *Manager) { m.policies[c] = p }
}

// WithDependents replaces the category dependency map.
func WithDependents(deps map[Category][]Category) Option {
	return func(m *Manager) { m.dependents = deps }
}

// Manager owns the cache store. It is the only reader and writer of its
// entries.
//
// Contract:
//   - Concurrency: safe for concurrent use. Misses on the same key share
//     one fetch; different keys fetch independently. Fetches run outside
//     the store lock.
//   - Context: GetOrFetch and Refresh return early when ctx ends. The
//     shared fetch keeps the first caller's context values but is
//     canceled only once every waiter on the key has left.
//   - Ordering: a fetch that an Invalidate overlaps is detached from the
//     key, so callers arriving after the Invalidate start a new fetch.
//   - Errors: fetch errors are returned to every waiter and never cached.
type Manager struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	inflight   map[string]*flight
	waiting    map[string]*waiters
	group      singleflight.Group
	policies   map[Category]Policy
	dependents map[Category][]Category
	now        func() time.Time
	rec        Recorder
	stats      Stats
	sets       int
}

// sweepEvery is how many Sets pass between sweeps of expired entries.
const sweepEvery = 256

// NewManager creates a Manager with the default policies and dependents.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		entries:    make(map[string]*Entry),
		inflight:   make(map[string]*flight),
		waiting:    make(map[string]*waiters),
		policies:   DefaultPolicies(),
		dependents: DefaultDependents(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the policy for c.
func (m *Manager) Policy(c Category) Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policies[c]
}

// Get returns the fresh value stored under key. Expired entries are
// removed and reported as misses.
func (m *Manager) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.fresh(m.now()) {
		delete(m.entries, key)
		m.stats.Expired++
		m.recordEviction(ctx, e.Category, "expired", 1)
		ok = false
	}
	if ok {
		m.stats.Hits++
	} else {
		m.stats.Misses++
	}
	m.mu.Unlock()

	category := Category("")
	if e != nil {
		category = e.Category
	}
	m.recordLookup(ctx, category, ok)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Set stores value under key with the category's TTL. Values are shared
// with readers and must not be modified after Set.
func (m *Manager) Set(ctx context.Context, key string, value []byte, category Category, scope Scope) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeLocked(ctx, key, value, category, scope)
	return nil
}

func (m *Manager) storeLocked(ctx context.Context, key string, value []byte, category Category, scope Scope) {
	ttl := m.policies[category].EffectiveTTL(0)
	if ttl <= 0 {
		return
	}
	m.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		Category:  category,
		Scope:     scope.clone(),
		CreatedAt: m.now(),
		TTL:       ttl,
	}
	m.stats.Sets++
	m.sets++
	if m.sets%sweepEvery == 0 {
		m.sweepLocked(ctx)
	}
}

// GetOrFetch returns the cached value for key, or runs fetch and caches
// its result. The boolean reports a cache hit.
func (m *Manager) GetOrFetch(ctx context.Context, key string, category Category, scope Scope, fetch Fetch) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	if !category.Valid() {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if fetch == nil {
		return nil, false, ErrNilFetch
	}

	m.mu.Lock()
	if e, ok := m.entries[key]; ok {
		if e.fresh(m.now()) {
			m.stats.Hits++
			m.mu.Unlock()
			m.recordLookup(ctx, category, true)
			return e.Value, true, nil
		}
		delete(m.entries, key)
		m.stats.Expired++
		m.recordEviction(ctx, category, "expired", 1)
	}
	m.stats.Misses++
	m.mu.Unlock()
	m.recordLookup(ctx, category, false)

	value, err := m.do(ctx, key, category, scope, fetch, false)
	return value, false, err
}

// Refresh runs fetch regardless of what is cached and stores the result.
// It joins a fetch already in flight for key.
func (m *Manager) Refresh(ctx context.Context, key string, category Category, scope Scope, fetch Fetch) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if fetch == nil {
		return nil, ErrNilFetch
	}
	return m.do(ctx, key, category, scope, fetch, true)
}

func (m *Manager) do(ctx context.Context, key string, category Category, scope Scope, fetch Fetch, force bool) ([]byte, error) {
	w := m.join(ctx, key)
	defer m.leave(key, w)

	ch := m.group.DoChan(key, func() (any, error) {
		return m.fetch(w.ctx, key, category, scope, fetch, force)
	})

	select {
	case r := <-ch:
		if r.Shared {
			m.mu.Lock()
			m.stats.Coalesced++
			m.mu.Unlock()
		}
		if r.Err != nil {
			return nil, r.Err
		}
		value, _ := r.Val.([]byte)
		return value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// join registers a waiter on key and returns the shared fetch context.
func (m *Manager) join(ctx context.Context, key string) *waiters {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waiting[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		w = &waiters{ctx: fctx, cancel: cancel}
		m.waiting[key] = w
	}
	w.n++
	return w
}

// leave drops a waiter; the last one out cancels the shared context.
func (m *Manager) leave(key string, w *waiters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.n--
	if w.n > 0 {
		return
	}
	w.cancel()
	if m.waiting[key] == w {
		delete(m.waiting, key)
	}
}

func (m *Manager) fetch(ctx context.Context, key string, category Category, scope Scope, fetch Fetch, force bool) ([]byte, error) {
	f := &flight{category: category, scope: scope.clone()}

	m.mu.Lock()
	// A flight that finished between the caller's miss and this one
	// already stored the value.
	if e, ok := m.entries[key]; ok && !force && e.fresh(m.now()) {
		m.mu.Unlock()
		return e.Value, nil
	}
	m.inflight[key] = f
	m.stats.Fetches++
	m.mu.Unlock()

	value, err := fetch(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[key] == f {
		delete(m.inflight, key)
	}
	if err != nil {
		m.stats.FetchErrors++
		return nil, err
	}
	if f.stale {
		m.stats.StaleDiscards++
		return value, nil
	}
	m.storeLocked(ctx, key, value, category, scope)
	return value, nil
}

// Invalidate evicts every entry matched by ev in ev.Category and,
// transitively, in its dependent categories. Matching in-flight fetches
// are marked stale and detached: their current waiters get the result,
// nothing stores it, and later callers fetch anew. It returns the number
// of evicted entries.
func (m *Manager) Invalidate(ctx context.Context, ev Event) int {
	if !ev.Category.Valid() {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for _, c := range m.affectedLocked(ev.Category) {
		n := 0
		for key, e := range m.entries {
			if e.Category == c && ev.matches(e.Scope) {
				delete(m.entries, key)
				n++
			}
		}
		for key, f := range m.inflight {
			if f.category == c && ev.matches(f.scope) {
				f.stale = true
				delete(m.inflight, key)
				m.group.Forget(key)
			}
		}
		if ev.Kind == All {
			m.stats.WideEvictions += int64(n)
		} else {
			m.stats.ScopedEvictions += int64(n)
		}
		m.recordEviction(ctx, c, ev.Kind.String(), n)
		evicted += n
	}
	return evicted
}

// affectedLocked returns c followed by its transitive dependents.
func (m *Manager) affectedLocked(c Category) []Category {
	out := []Category{c}
	for i := 0; i < len(out); i++ {
		for _, dep := range m.dependents[out[i]] {
			if !slices.Contains(out, dep) {
				out = append(out, dep)
			}
		}
	}
	return out
}

// Prune removes every expired entry and returns how many it removed.
func (m *Manager) Prune(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(ctx)
}

func (m *Manager) sweepLocked(ctx context.Context) int {
	now := m.now()
	removed := make(map[Category]int)
	for key, e := range m.entries {
		if !e.fresh(now) {
			delete(m.entries, key)
			removed[e.Category]++
		}
	}
	total := 0
	for c, n := range removed {
		m.stats.Expired += int64(n)
		m.recordEviction(ctx, c, "expired", n)
		total += n
	}
	return total
}

// Len returns the number of fresh entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for _, e := range m.entries {
		if e.fresh(now) {
			n++
		}
	}
	return n
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.PerCategory = make(map[Category]int, len(Categories()))
	now := m.now()
	for _, e := range m.entries {
		if e.fresh(now) {
			s.PerCategory[e.Category]++
			s.Entries++
		}
	}
	return s
}

// unknownCategory labels lookups of keys the manager holds nothing for.
const unknownCategory = "unknown"

func (m *Manager) recordLookup(ctx context.Context, c Category, hit bool) {
	if m.rec == nil {
		return
	}
	label := string(c)
	if label == "" {
		label = unknownCategory
	}
	m.rec.RecordCacheLookup(ctx, label, hit)
}

func (m *Manager) recordEviction(ctx context.Context, c Category, scope string, n int) {
	if m.rec != nil && n > 0 {
		m.rec.RecordEviction(ctx, string(c), scope, n)
	}
}
