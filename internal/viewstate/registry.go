package viewstate

import (
	"container/list"
	"strings"
	"sync"
)

// DefaultMaxProfiles bounds the profile stores a Registry keeps when
// Options.MaxProfiles is unset.
const DefaultMaxProfiles = 256

// Registry keeps one Store per view: the all-campaigns listing plus one
// store per profile account, created on first use. Profile stores are
// evicted least recently used first once MaxProfiles is reached.
type Registry struct {
	base  Options
	all   *Store
	limit int

	mu     sync.Mutex
	order  *list.List // front is most recently used; values are *profileEntry
	owners map[string]*list.Element
}

type profileEntry struct {
	key   string
	store *Store
}

// NewRegistry builds the all-campaigns store from base and reuses base for
// every profile store.
func NewRegistry(base Options) (*Registry, error) {
	base.Owner = ""
	all, err := NewStore(base)
	if err != nil {
		return nil, err
	}
	limit := base.MaxProfiles
	if limit <= 0 {
		limit = DefaultMaxProfiles
	}
	return &Registry{
		base:   base,
		all:    all,
		limit:  limit,
		order:  list.New(),
		owners: make(map[string]*list.Element),
	}, nil
}

// All returns the store backing the listing view.
func (r *Registry) All() *Store { return r.all }

func ownerKey(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}

// ForOwner returns the profile store for owner, creating it when missing.
// Account identifiers are compared case-insensitively.
func (r *Registry) ForOwner(owner string) *Store {
	key := ownerKey(owner)
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.owners[key]; ok {
		r.order.MoveToFront(el)
		return el.Value.(*profileEntry).store
	}
	opts := r.base
	opts.Owner = strings.TrimSpace(owner)
	// Source was validated when the registry was built.
	s, _ := NewStore(opts)
	r.owners[key] = r.order.PushFront(&profileEntry{key: key, store: s})
	for r.order.Len() > r.limit {
		oldest := r.order.Back()
		r.order.Remove(oldest)
		delete(r.owners, oldest.Value.(*profileEntry).key)
	}
	return s
}

// Lookup returns the profile store for owner without creating one.
func (r *Registry) Lookup(owner string) (*Store, bool) {
	key := ownerKey(owner)
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.owners[key]
	if !ok {
		return nil, false
	}
	r.order.MoveToFront(el)
	return el.Value.(*profileEntry).store, true
}

// Profiles reports how many profile stores are held.
func (r *Registry) Profiles() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
