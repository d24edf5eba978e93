// Package factory is the single place connections are created.
// Every connection it creates is instrumented and handed to a registry.
package factory

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/irctrakz/sockettrack/pkg/core"
	"github.com/irctrakz/sockettrack/pkg/instrument"
	"github.com/irctrakz/sockettrack/pkg/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// Factory creates instrumented connections and registers each one.
type Factory struct {
	registry core.Registry
	config   core.FactoryConfig

	// Default connection-creation mechanism.
	dialer *net.Dialer

	// Used for calls with an explicit local address.
	bindDialer *net.Dialer
}

// Ensure Factory can be used wherever a proxy dialer is expected
var _ proxy.Dialer = (*Factory)(nil)
var _ proxy.ContextDialer = (*Factory)(nil)

// DefaultConfig returns the default factory configuration.
func DefaultConfig() core.FactoryConfig {
	return core.FactoryConfig{
		Network:           "tcp",
		KeepAliveSec:      0,
		ReuseAddr:         false,
		FallbackUnwrapped: false,
	}
}

// New creates a factory that registers connections with reg.
func New(reg core.Registry, config core.FactoryConfig) *Factory {
	if reg == nil {
		panic("factory: nil registry")
	}
	if config.Network == "" {
		config.Network = "tcp"
	}

	d := &net.Dialer{}
	switch {
	case config.KeepAliveSec > 0:
		d.KeepAlive = time.Duration(config.KeepAliveSec) * time.Second
	case config.KeepAliveSec < 0:
		d.KeepAlive = -1
	}

	bd := *d
	if config.ReuseAddr {
		bd.Control = reuseAddrControl
	}

	return &Factory{
		registry:   reg,
		config:     config,
		dialer:     d,
		bindDialer: &bd,
	}
}

// Config returns the factory configuration.
func (f *Factory) Config() core.FactoryConfig {
	return f.config
}

// CreateSocket returns a registered connection without a target.
// Connect it with ConnectSocket or (*instrument.Conn).Connect.
func (f *Factory) CreateSocket() *instrument.Conn {
	c := instrument.Open()
	f.register(c)
	return c
}

// ConnectSocket connects a connection obtained from CreateSocket using the
// factory's dialer.
func (f *Factory) ConnectSocket(ctx context.Context, c *instrument.Conn, address string) error {
	return c.Connect(ctx, f.dialer, f.config.Network, address)
}

// CreateSocketHost connects to host:port.
func (f *Factory) CreateSocketHost(ctx context.Context, host string, port int) (*instrument.Conn, error) {
	c, err := instrument.OpenHost(ctx, f.dialer, f.config.Network, host, port)
	if err != nil {
		return nil, err
	}
	f.register(c)
	return c, nil
}

// CreateSocketHostFrom connects to host:port from localIP:localPort.
func (f *Factory) CreateSocketHostFrom(ctx context.Context, host string, port int, localIP net.IP, localPort int) (*instrument.Conn, error) {
	c, err := instrument.OpenHostFrom(ctx, f.bindDialer, f.config.Network, host, port, localIP, localPort)
	if err != nil {
		return nil, err
	}
	f.register(c)
	return c, nil
}

// CreateSocketAddr connects to ip:port.
func (f *Factory) CreateSocketAddr(ctx context.Context, ip net.IP, port int) (*instrument.Conn, error) {
	c, err := instrument.OpenAddr(ctx, f.dialer, f.config.Network, ip, port)
	if err != nil {
		return nil, err
	}
	f.register(c)
	return c, nil
}

// CreateSocketAddrFrom connects to ip:port from localIP:localPort.
func (f *Factory) CreateSocketAddrFrom(ctx context.Context, ip net.IP, port int, localIP net.IP, localPort int) (*instrument.Conn, error) {
	c, err := instrument.OpenAddrFrom(ctx, f.bindDialer, f.config.Network, ip, port, localIP, localPort)
	if err != nil {
		return nil, err
	}
	f.register(c)
	return c, nil
}

// DialContext connects to address on the named network.
//
// Connections are wrapped and registered like the CreateSocket calls. With
// FallbackUnwrapped set, networks outside the TCP family are dialed with the
// default dialer and returned as is.
func (f *Factory) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if f.config.FallbackUnwrapped && !isTCP(network) {
		return f.dialer.DialContext(ctx, network, address)
	}

	nc, err := f.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	c := instrument.Wrap(nc)
	f.register(c)
	return c, nil
}

// Dial connects to address on the named network.
func (f *Factory) Dial(network, address string) (net.Conn, error) {
	return f.DialContext(context.Background(), network, address)
}

func (f *Factory) register(c *instrument.Conn) {
	f.registry.Register(c)
	logging.DebugWithFields(logrus.Fields{
		"component": "factory",
		"remote":    addrString(c.RemoteAddr()),
		"local":     addrString(c.LocalAddr()),
	}, "Connection created")
}

func isTCP(network string) bool {
	return strings.HasPrefix(network, "tcp")
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
