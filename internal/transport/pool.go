package transport

import (
	"context"
	"sync"

	"github.com/infinispan/go-hotrod/internal/errs"
)

// ConnectionPool leases connections to callers in round-robin order. The
// pool mutex guards only bookkeeping (the connection slice and the
// round-robin cursor); it is never held across a network operation, so a
// slow or stuck connection cannot stall topology updates or other leases.
type ConnectionPool struct {
	mu       sync.Mutex
	dial     DialFunc
	poolSize int
	conns    []*SocketConnection
	cursor   int
}

// NewConnectionPool returns a pool that will dial new members with dial (or
// DefaultDialFunc when nil), maintaining poolSize connections per address
// (at least 1).
func NewConnectionPool(dial DialFunc, poolSize int) *ConnectionPool {
	if dial == nil {
		dial = DefaultDialFunc
	}
	if poolSize < 1 {
		poolSize = 1
	}
	return &ConnectionPool{dial: dial, poolSize: poolSize}
}

// Connect populates the pool from addresses, opening poolSize connections
// to each, and connects every one of them.
func (p *ConnectionPool) Connect(ctx context.Context, addresses []string) error {
	p.mu.Lock()
	if len(p.conns) > 0 {
		p.mu.Unlock()
		return nil
	}
	var conns []*SocketConnection
	for _, addr := range addresses {
		for i := 0; i < p.poolSize; i++ {
			conns = append(conns, NewSocketConnection(addr, p.dial))
		}
	}
	p.conns = conns
	p.mu.Unlock()

	for _, c := range conns {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect closes every member connection and empties the pool.
func (p *ConnectionPool) Disconnect() error {
	p.mu.Lock()
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()

	var firstErr error
	for _, c := range conns {
		if err := c.Disconnect(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len reports the current pool size.
func (p *ConnectionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Lease hands out the next connection in round-robin order. The returned
// connection is already locked (see SocketConnection.Lock); the caller must
// call Release when done with it.
func (p *ConnectionPool) Lease() (*SocketConnection, error) {
	p.mu.Lock()
	if len(p.conns) == 0 {
		p.mu.Unlock()
		return nil, errs.NewConnectionError("connection pool is empty")
	}
	c := p.conns[p.cursor%len(p.conns)]
	p.cursor++
	p.mu.Unlock()

	c.Lock()
	return c, nil
}

// Release returns a connection leased with Lease.
func (p *ConnectionPool) Release(c *SocketConnection) {
	c.Unlock()
}

// Update reconciles the pool against a fresh member list, as reported by a
// server's topology change header. Members whose address is unchanged keep
// their existing *SocketConnection (and thus its open socket and identity,
// so a lease in flight on it is unaffected); members no longer present are
// disconnected after their last lease drains; brand new members are added
// and dialed before Update returns.
//
// Disconnecting a stale connection blocks on its own lock, never on the
// pool's, and runs in the background, so Update itself never stalls waiting
// on in-flight I/O.
func (p *ConnectionPool) Update(ctx context.Context, addresses []string) error {
	wanted := make(map[string]int, len(addresses))
	for _, a := range addresses {
		wanted[a] = p.poolSize
	}

	p.mu.Lock()
	have := make(map[string]int, len(p.conns))
	kept := make([]*SocketConnection, 0, len(addresses)*p.poolSize)
	var stale []*SocketConnection
	for _, c := range p.conns {
		if have[c.Address] < wanted[c.Address] {
			kept = append(kept, c)
			have[c.Address]++
		} else {
			stale = append(stale, c)
		}
	}
	for _, a := range addresses {
		for have[a] < wanted[a] {
			kept = append(kept, NewSocketConnection(a, p.dial))
			have[a]++
		}
	}
	p.conns = kept
	p.cursor = 0
	p.mu.Unlock()

	var drainErr error
	for _, c := range stale {
		go func(c *SocketConnection) {
			c.Lock()
			c.Disconnect()
			c.Unlock()
		}(c)
	}

	for _, c := range kept {
		if !c.Connected() {
			if err := c.Connect(ctx); err != nil && drainErr == nil {
				drainErr = err
			}
		}
	}
	return drainErr
}
