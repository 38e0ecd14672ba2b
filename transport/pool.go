package transport

import (
	"net"
	"sync"
)

// poolKey identifies a reusable connection slot. Profile name is part
// of the key: a connection fingerprinted as one client must never be
// reused for a handle impersonating another.
type poolKey struct {
	host    string
	port    string
	profile string
}

// connPool holds idle keep-alive connections. All slot acquisition
// and release is serialized by a single mutex; concurrent Perform
// calls race to reuse idle slots through it.
type connPool struct {
	mu        sync.Mutex
	idle      map[poolKey][]net.Conn
	maxPerKey int
	closed    bool
}

func newConnPool(maxPerKey int) *connPool {
	return &connPool{
		idle:      make(map[poolKey][]net.Conn),
		maxPerKey: maxPerKey,
	}
}

// get pops the most recently parked connection for key, or nil.
func (p *connPool) get(key poolKey) net.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := p.idle[key]
	if len(conns) == 0 {
		return nil
	}

	conn := conns[len(conns)-1]
	p.idle[key] = conns[:len(conns)-1]

	return conn
}

// put parks a clean connection for reuse. Overflow beyond the per-key
// cap is closed rather than parked.
func (p *connPool) put(key poolKey, conn net.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.idle[key]) >= p.maxPerKey {
		conn.Close()
		return
	}

	p.idle[key] = append(p.idle[key], conn)
}

// closeAll closes every idle connection and rejects future puts.
func (p *connPool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for key, conns := range p.idle {
		for _, conn := range conns {
			conn.Close()
		}
		delete(p.idle, key)
	}
}
