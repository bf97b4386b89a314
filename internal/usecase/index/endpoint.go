package index

import (
	"fmt"
	"net"
	"strconv"
	"sync"
)

// DefaultPort is the index service port used when an endpoint sets none.
const DefaultPort = 6379

// Endpoint locates an index node.
type Endpoint struct {
	Host     string
	Port     int
	Node     string
	User     string
	Password string
}

// Addr returns "host:port".
func (e Endpoint) Addr() string {
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// String renders the endpoint without credentials.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s/%s", e.Addr(), e.Node)
}

// DialFunc creates a driver for an endpoint. It must not touch the network.
type DialFunc func(ep Endpoint) (IndexService, error)

// Pool shares one driver per endpoint across adapters.
type Pool struct {
	dial DialFunc

	mu    sync.Mutex
	conns map[Endpoint]IndexService
}

// NewPool creates a pool that dials with dial.
func NewPool(dial DialFunc) *Pool {
	return &Pool{dial: dial, conns: make(map[Endpoint]IndexService)}
}

// Get returns the driver for ep, creating it on first use.
func (p *Pool) Get(ep Endpoint) (IndexService, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if svc, ok := p.conns[ep]; ok {
		return svc, nil
	}
	svc, err := p.dial(ep)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ep, err)
	}
	p.conns[ep] = svc
	return svc, nil
}

// Close closes every driver that can be closed.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ep, svc := range p.conns {
		if c, ok := svc.(interface{ Close() }); ok {
			c.Close()
		}
		delete(p.conns, ep)
	}
}
