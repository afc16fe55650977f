package render

import "sync"

// DefaultPoolCapacity bounds the retained handles per node type.
const DefaultPoolCapacity = 64

// Pool is the type-keyed recycle pool used by the batched strategy.
// Removed nodes are parked here and handed back out when a node of the
// same type is inserted, instead of discarding and recreating them.
//
// Recycled handles may carry attributes from their previous use; the
// strategy re-sets every attribute of the inserted node, but adapters
// that cannot tolerate stale state should reset nodes in RemoveNode.
type Pool struct {
	mu     sync.Mutex
	byType map[string][]NodeHandle
	cap    int

	hits   uint64
	misses uint64
}

// NewPool creates a pool retaining at most capPerType handles per type.
// capPerType <= 0 uses DefaultPoolCapacity.
func NewPool(capPerType int) *Pool {
	if capPerType <= 0 {
		capPerType = DefaultPoolCapacity
	}
	return &Pool{
		byType: make(map[string][]NodeHandle),
		cap:    capPerType,
	}
}

// Acquire takes a parked handle of the given type, if any.
func (p *Pool) Acquire(typ string) (NodeHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	handles := p.byType[typ]
	if len(handles) == 0 {
		p.misses++
		return nil, false
	}
	h := handles[len(handles)-1]
	p.byType[typ] = handles[:len(handles)-1]
	p.hits++
	return h, true
}

// Release parks a handle for reuse. Over-capacity handles are dropped.
func (p *Pool) Release(typ string, h NodeHandle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.byType[typ]) >= p.cap {
		return
	}
	p.byType[typ] = append(p.byType[typ], h)
}

// Stats returns acquire hit/miss counts.
func (p *Pool) Stats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}
