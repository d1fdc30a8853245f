package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultInternLimit bounds the number of distinct strings one pool keeps.
const DefaultInternLimit = 1 << 16

// StringInternPool deduplicates strings so that repeated cell values in a
// loaded table share one backing allocation. A pool is meant to live for
// one load and be dropped with it.
type StringInternPool struct {
	mu      sync.RWMutex
	strings map[string]string
	maxSize int
	size    int64
	hits    int64
	misses  int64
}

// NewStringInternPool creates a pool holding at most maxSize distinct
// strings. maxSize <= 0 selects DefaultInternLimit.
func NewStringInternPool(maxSize int) *StringInternPool {
	if maxSize <= 0 {
		maxSize = DefaultInternLimit
	}
	return &StringInternPool{
		strings: make(map[string]string, 1024),
		maxSize: maxSize,
	}
}

// Intern returns an interned version of the string
func (p *StringInternPool) Intern(s string) string {
	// Fast path: check if already interned
	p.mu.RLock()
	if interned, ok := p.strings[s]; ok {
		p.mu.RUnlock()
		atomic.AddInt64(&p.hits, 1)
		return interned
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if interned, ok := p.strings[s]; ok {
		atomic.AddInt64(&p.hits, 1)
		return interned
	}

	atomic.AddInt64(&p.misses, 1)
	if atomic.LoadInt64(&p.size) >= int64(p.maxSize) {
		return s
	}

	p.strings[s] = s
	atomic.AddInt64(&p.size, 1)
	return s
}

// InternBytes interns a byte slice as a string
func (p *StringInternPool) InternBytes(b []byte) string {
	p.mu.RLock()
	// The conversion in a map index does not allocate.
	if interned, ok := p.strings[string(b)]; ok {
		p.mu.RUnlock()
		atomic.AddInt64(&p.hits, 1)
		return interned
	}
	p.mu.RUnlock()
	return p.Intern(string(b))
}

// Stats returns intern pool statistics
func (p *StringInternPool) Stats() (size, hits, misses int64) {
	return atomic.LoadInt64(&p.size),
		atomic.LoadInt64(&p.hits),
		atomic.LoadInt64(&p.misses)
}
