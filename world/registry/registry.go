// Package registry interns opaque state and biome identifiers into dense
// uint32 ids, the same name->runtime-id role server/world/block_state.go
// plays for Minecraft block states, generalised away from NBT/block
// semantics (out of scope here) to a plain string key.
package registry

import (
	"sync"

	"github.com/brentp/intintmap"
	"github.com/cespare/xxhash/v2"
)

// Registry interns string keys into sequential uint32 ids on first sight,
// returning the existing id on every subsequent lookup of the same key. It
// is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	hashes *intintmap.Map
	names  []string
}

// New returns an empty Registry sized for an expected number of distinct
// entries, matching block_state.go's ClearStates sizing its intintmap ahead
// of the known block-state count.
func New(expected int) *Registry {
	return &Registry{
		hashes: intintmap.New(int64(expected), 0.999),
	}
}

// Intern returns the id for key, assigning it a new one if key has not been
// seen before.
func (r *Registry) Intern(key string) uint32 {
	h := int64(xxhash.Sum64String(key))

	r.mu.RLock()
	if id, ok := r.hashes.Get(h); ok {
		r.mu.RUnlock()
		return uint32(id)
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.hashes.Get(h); ok {
		return uint32(id)
	}
	id := int64(len(r.names))
	r.names = append(r.names, key)
	r.hashes.Put(h, id)
	return uint32(id)
}

// Lookup returns the id already assigned to key, without interning it.
func (r *Registry) Lookup(key string) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.hashes.Get(int64(xxhash.Sum64String(key)))
	return uint32(id), ok
}

// Name returns the key interned at id, or false if id is out of range.
func (r *Registry) Name(id uint32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.names) {
		return "", false
	}
	return r.names[id], true
}

// Len returns the number of distinct keys interned so far.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
