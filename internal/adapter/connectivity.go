package adapter

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/crate/internal/domain"
)

// probeCacheTTL is how long a probe answer is reused
const probeCacheTTL = 5 * time.Second

// Probe reports connectivity by opening a TCP connection to the catalog host.
type Probe struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)

	mu      sync.Mutex
	online  bool
	checked time.Time
}

var _ domain.Connectivity = (*Probe)(nil)

// NewProbe creates a Probe for the host of baseURL.
func NewProbe(baseURL string, timeout time.Duration) (*Probe, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := &net.Dialer{}
	return &Probe{
		addr:    net.JoinHostPort(u.Hostname(), port),
		timeout: timeout,
		dial:    d.DialContext,
	}, nil
}

// Online dials the host, reusing a recent answer.
func (p *Probe) Online(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checked.IsZero() && time.Since(p.checked) < probeCacheTTL {
		return p.online
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.addr)
	p.online = err == nil
	p.checked = time.Now()
	if conn != nil {
		conn.Close()
	}
	return p.online
}

// StaticConnectivity always reports the same state.
type StaticConnectivity bool

// Online returns the fixed state.
func (s StaticConnectivity) Online(context.Context) bool { return bool(s) }

// NewConnectivity returns the connectivity check for cfg.
func NewConnectivity(cfg *Config) (domain.Connectivity, error) {
	if cfg.Network.Offline {
		return StaticConnectivity(false), nil
	}
	return NewProbe(cfg.Remote.BaseURL, cfg.Network.ProbeTimeout)
}
