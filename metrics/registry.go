package metrics

import (
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrMetricsNotFound is returned when no Block has been registered for a
// (name, origin) pair — matching spec.md §7's distinct MetricsNotFound
// error kind: either the origin's pool was built with StartMetrics=false
// (spec.md §8 scenario S1), or nothing has ever registered against it.
var ErrMetricsNotFound = errors.New("metrics: no refs registered for this name/origin")

// ErrNotFound is a deprecated alias for ErrMetricsNotFound, kept for
// callers written against the older, undifferentiated name.
var ErrNotFound = ErrMetricsNotFound

type directoryKey struct {
	name   string
	origin string
}

// Registry is the process-wide directory mapping (finch name, origin) to
// every Block backing it — a single origin may be served by several pool
// replicas (sharding or hedging), so lookups return a list.
type Registry struct {
	mu    sync.Mutex
	cache *lru.Cache[directoryKey, []*Block]
}

// NewRegistry builds a Registry bounded to capacity distinct (name, origin)
// keys; eviction only drops the directory entry, never a live Block.
func NewRegistry(capacity int) *Registry {
	cache, _ := lru.New[directoryKey, []*Block](capacity)
	return &Registry{cache: cache}
}

// Register attaches b under (name, origin). Safe to call multiple times
// for the same origin when several pool replicas share it.
func (r *Registry) Register(name, origin string, b *Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := directoryKey{name, origin}
	refs, _ := r.cache.Get(k)
	r.cache.Add(k, append(refs, b))
}

// Unregister drops b from (name, origin), e.g. on pool shutdown.
func (r *Registry) Unregister(name, origin string, b *Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := directoryKey{name, origin}
	refs, ok := r.cache.Get(k)
	if !ok {
		return
	}
	kept := refs[:0]
	for _, ref := range refs {
		if ref != b {
			kept = append(kept, ref)
		}
	}
	if len(kept) == 0 {
		r.cache.Remove(k)
		return
	}
	r.cache.Add(k, kept)
}

// Refs returns every Block registered under (name, origin).
func (r *Registry) Refs(name, origin string) ([]*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs, ok := r.cache.Get(directoryKey{name, origin})
	if !ok || len(refs) == 0 {
		return nil, ErrMetricsNotFound
	}
	return append([]*Block(nil), refs...), nil
}

// GetStatus maps every ref attached to (name, origin) through GetStatus,
// matching get_pool_status's "merge nothing, return the list" contract.
func (r *Registry) GetStatus(name, origin string) ([]Status, error) {
	refs, err := r.Refs(name, origin)
	if err != nil {
		return nil, err
	}
	statuses := make([]Status, len(refs))
	for i, b := range refs {
		statuses[i] = b.GetStatus()
	}
	return statuses, nil
}

// Default is the process-wide registry Pools register into unless
// constructed with an explicit Registry.
var Default = NewRegistry(1024)
