// Package instrument wraps network connections with byte counters.
//
// A Conn behaves like the connection it wraps. Its read and write sides are
// exposed as counted views that are created on first use and cached for the
// lifetime of the connection.
package instrument

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irctrakz/sockettrack/pkg/core"
	"github.com/irctrakz/sockettrack/pkg/faults"
)

var (
	// ErrNotConnected is returned for I/O on a connection that was opened
	// without a target and never connected.
	ErrNotConnected = faults.New("socket is not connected")

	// ErrAlreadyConnected is returned by Connect on an established connection.
	ErrAlreadyConnected = faults.New("socket is already connected")
)

// Conn is an instrumented network connection.
type Conn struct {
	// mu guards conn and view creation.
	mu   sync.Mutex
	conn net.Conn

	in     atomic.Pointer[CountingReader]
	out    atomic.Pointer[CountingWriter]
	closed atomic.Bool
}

// Ensure Conn implements the counted connection contract
var _ core.CountedConn = (*Conn)(nil)

// Wrap instruments an established connection. The returned Conn owns c.
func Wrap(c net.Conn) *Conn {
	return &Conn{conn: c}
}

// Open returns a connection without a target. Call Connect before using it.
func Open() *Conn {
	return &Conn{}
}

// Connect establishes the connection to address using d.
func (c *Conn) Connect(ctx context.Context, d *net.Dialer, network, address string) error {
	return c.connect(ctx, d, network, address)
}

// ConnectFrom establishes the connection to address from the given local address.
func (c *Conn) ConnectFrom(ctx context.Context, d *net.Dialer, network, address string, local net.Addr) error {
	return c.connect(ctx, withLocal(d, local), network, address)
}

func (c *Conn) connect(ctx context.Context, d *net.Dialer, network, address string) error {
	if err := c.checkConnectable(); err != nil {
		return err
	}

	nc, err := dialer(d).DialContext(ctx, network, address)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil || c.closed.Load() {
		nc.Close()
		if c.closed.Load() {
			return net.ErrClosed
		}
		return ErrAlreadyConnected
	}
	c.conn = nc
	return nil
}

func (c *Conn) checkConnectable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return net.ErrClosed
	}
	if c.conn != nil {
		return ErrAlreadyConnected
	}
	return nil
}

// underlying returns the wrapped connection or nil.
func (c *Conn) underlying() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// NetConn returns the wrapped connection, or nil when not connected.
func (c *Conn) NetConn() net.Conn {
	return c.underlying()
}

// Connected reports whether the connection has been established.
func (c *Conn) Connected() bool {
	return c.underlying() != nil
}

// ReadView returns the counted read side of the connection.
// Every call returns the same view.
func (c *Conn) ReadView() (*CountingReader, error) {
	if v := c.in.Load(); v != nil {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v := c.in.Load(); v != nil {
		return v, nil
	}
	if err := c.viewableLocked(); err != nil {
		return nil, err
	}
	v := NewCountingReader(&connInput{owner: c, conn: c.conn})
	c.in.Store(v)
	return v, nil
}

// WriteView returns the counted write side of the connection.
// Every call returns the same view.
func (c *Conn) WriteView() (*CountingWriter, error) {
	if v := c.out.Load(); v != nil {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v := c.out.Load(); v != nil {
		return v, nil
	}
	if err := c.viewableLocked(); err != nil {
		return nil, err
	}
	v := NewCountingWriter(&connOutput{owner: c, conn: c.conn})
	c.out.Store(v)
	return v, nil
}

func (c *Conn) viewableLocked() error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	return nil
}

// BytesRead returns the number of bytes read, or 0 if the read side was never used.
func (c *Conn) BytesRead() uint64 {
	if v := c.in.Load(); v != nil {
		return v.Count()
	}
	return 0
}

// BytesWritten returns the number of bytes written, or 0 if the write side was never used.
func (c *Conn) BytesWritten() uint64 {
	if v := c.out.Load(); v != nil {
		return v.Count()
	}
	return 0
}

// Metrics returns both counters.
func (c *Conn) Metrics() core.ConnMetrics {
	return core.ConnMetrics{
		BytesRead:    c.BytesRead(),
		BytesWritten: c.BytesWritten(),
	}
}

// Read reads through the counted read view.
func (c *Conn) Read(p []byte) (int, error) {
	v, err := c.ReadView()
	if err != nil {
		return 0, err
	}
	return v.Read(p)
}

// Write writes through the counted write view.
func (c *Conn) Write(p []byte) (int, error) {
	v, err := c.WriteView()
	if err != nil {
		return 0, err
	}
	return v.Write(p)
}

// Close closes the connection. Counters stay readable afterwards.
func (c *Conn) Close() error {
	c.closed.Store(true)
	nc := c.underlying()
	if nc == nil {
		return nil
	}
	return nc.Close()
}

// Closed reports whether Close has been called on the connection or one of its views.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// CloseWrite shuts down the writing side when the wrapped connection supports it.
func (c *Conn) CloseWrite() error {
	nc := c.underlying()
	if nc == nil {
		return ErrNotConnected
	}
	if cw, ok := nc.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nc.Close()
}

// LocalAddr returns the local address, or nil when not connected.
func (c *Conn) LocalAddr() net.Addr {
	if nc := c.underlying(); nc != nil {
		return nc.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the remote address, or nil when not connected.
func (c *Conn) RemoteAddr() net.Addr {
	if nc := c.underlying(); nc != nil {
		return nc.RemoteAddr()
	}
	return nil
}

// SetDeadline sets the read and write deadlines of the wrapped connection.
func (c *Conn) SetDeadline(t time.Time) error {
	nc := c.underlying()
	if nc == nil {
		return ErrNotConnected
	}
	return nc.SetDeadline(t)
}

// SetReadDeadline sets the read deadline of the wrapped connection.
func (c *Conn) SetReadDeadline(t time.Time) error {
	nc := c.underlying()
	if nc == nil {
		return ErrNotConnected
	}
	return nc.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline of the wrapped connection.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	nc := c.underlying()
	if nc == nil {
		return ErrNotConnected
	}
	return nc.SetWriteDeadline(t)
}
