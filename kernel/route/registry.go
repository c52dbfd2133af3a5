// Package route implements the route registry and match cache (C3): an
// ordered table of (pattern, handler) entries plus an LRU cache from
// concrete path to the winning match, invalidated on any registry
// mutation. The LRU itself is grounded on the same container/list pattern
// as kernel/graph's dependency cache (in turn grounded on the teacher's
// kernel/core/mesh/cache.go ChunkCache).
package route

import (
	"container/list"
	"sort"
	"sync"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/pathmatch"
)

// DefaultCacheCapacity is the match-cache size used when none is supplied.
const DefaultCacheCapacity = 256

// Entry is one registered route.
type Entry struct {
	Pattern  pathmatch.Pattern
	Handler  foundation.HandlerFunc
	Options  foundation.RouteOptions
	seq      int
}

// Match is a successful lookup: the winning entry plus its extracted
// params.
type Match struct {
	Entry  Entry
	Params map[string]string
}

type cacheItem struct {
	key   string
	match Match
	miss  bool
}

// Registry holds the routes for one subsystem.
type Registry struct {
	mu       sync.Mutex
	entries  []Entry
	nextSeq  int
	cache    map[string]*list.Element
	cacheLRU *list.List
	capacity int
}

// New creates an empty registry with the given match-cache capacity (0
// uses DefaultCacheCapacity).
func New(cacheCapacity int) *Registry {
	if cacheCapacity <= 0 {
		cacheCapacity = DefaultCacheCapacity
	}
	return &Registry{
		cache:    make(map[string]*list.Element),
		cacheLRU: list.New(),
		capacity: cacheCapacity,
	}
}

// Register adds a route. Registering the exact same pattern string twice
// is rejected with foundation.ErrDuplicate.
func (r *Registry) Register(patternStr string, handler foundation.HandlerFunc, opts foundation.RouteOptions) error {
	pat, err := pathmatch.ParsePattern(patternStr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.Pattern.String() == pat.String() {
			return foundation.ErrDuplicate
		}
	}

	r.entries = append(r.entries, Entry{
		Pattern: pat,
		Handler: handler,
		Options: opts,
		seq:     r.nextSeq,
	})
	r.nextSeq++
	r.invalidateLocked()
	return nil
}

// Unregister removes the route registered under the given pattern string.
// Returns foundation.ErrNoRoute if no such pattern is registered.
func (r *Registry) Unregister(patternStr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.Pattern.String() == patternStr {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			r.invalidateLocked()
			return nil
		}
	}
	return foundation.ErrNoRoute
}

// Match resolves path against the registry: a cached result is returned
// immediately; on a miss the table is scanned, ordered by descending
// specificity then ascending registration order, and the winner is cached.
func (r *Registry) Match(path foundation.Path) (Match, bool) {
	key := path.String()

	r.mu.Lock()
	if elem, ok := r.cache[key]; ok {
		r.cacheLRU.MoveToFront(elem)
		item := elem.Value.(*cacheItem)
		if item.miss {
			r.mu.Unlock()
			return Match{}, false
		}
		m := item.match
		r.mu.Unlock()
		return m, true
	}
	entries := append([]Entry(nil), r.entries...)
	r.mu.Unlock()

	candidates := make([]struct {
		entry  Entry
		params map[string]string
	}, 0, len(entries))

	for _, e := range entries {
		ok, params := pathmatch.Match(e.Pattern, path)
		if ok {
			candidates = append(candidates, struct {
				entry  Entry
				params map[string]string
			}{e, params})
		}
	}

	if len(candidates) == 0 {
		r.storeLocked(key, cacheItem{key: key, miss: true})
		return Match{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si := pathmatch.Specificity(candidates[i].entry.Pattern)
		sj := pathmatch.Specificity(candidates[j].entry.Pattern)
		if si != sj {
			return si > sj
		}
		return candidates[i].entry.seq < candidates[j].entry.seq
	})

	winner := candidates[0]
	result := Match{Entry: winner.entry, Params: winner.params}
	r.storeLocked(key, cacheItem{key: key, match: result})
	return result, true
}

func (r *Registry) storeLocked(key string, ci cacheItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elem, ok := r.cache[key]; ok {
		elem.Value = &ci
		r.cacheLRU.MoveToFront(elem)
		return
	}
	elem := r.cacheLRU.PushFront(&ci)
	r.cache[key] = elem

	for r.cacheLRU.Len() > r.capacity {
		oldest := r.cacheLRU.Back()
		if oldest == nil {
			break
		}
		r.cacheLRU.Remove(oldest)
		delete(r.cache, oldest.Value.(*cacheItem).key)
	}
}

// invalidateLocked clears the match cache; callers must hold r.mu.
func (r *Registry) invalidateLocked() {
	r.cache = make(map[string]*list.Element)
	r.cacheLRU = list.New()
}

// Kind identifies a Registry as the "router" facet kind, so it can be
// installed directly into a subsystem's facet manager.
func (r *Registry) Kind() string { return "router" }

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
