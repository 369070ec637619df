package chat

import (
	"sort"

	"github.com/raphaelgruber/converse-go/internal/store"
)

// Registry maps conversation identities to their message stores. Stores are
// materialized lazily on first access and kept alive for the process
// lifetime, so switching projects back and forth preserves in-memory state.
type Registry struct {
	stores   map[string]*store.Store
	resolver store.Resolver
}

// NewRegistry creates an empty registry whose stores share one resolver.
func NewRegistry(resolver store.Resolver) *Registry {
	return &Registry{
		stores:   make(map[string]*store.Store),
		resolver: resolver,
	}
}

// Get returns the store for identity, creating an empty one if this is the
// first access.
func (r *Registry) Get(identity string) *store.Store {
	s, ok := r.stores[identity]
	if !ok {
		s = store.New(r.resolver)
		r.stores[identity] = s
	}
	return s
}

// Replace discards any existing store for identity and installs a fresh
// empty one.
func (r *Registry) Replace(identity string) *store.Store {
	s := store.New(r.resolver)
	r.stores[identity] = s
	return s
}

// Identities lists every materialized conversation, sorted for stable output.
func (r *Registry) Identities() []string {
	out := make([]string, 0, len(r.stores))
	for identity := range r.stores {
		out = append(out, identity)
	}
	sort.Strings(out)
	return out
}
