package instrument

import (
	"context"
	"net"
	"strconv"
)

// OpenHost connects to host:port. Resolution and connection errors are
// returned as the dialer reports them.
func OpenHost(ctx context.Context, d *net.Dialer, network, host string, port int) (*Conn, error) {
	return open(ctx, d, network, hostPort(host, port))
}

// OpenAddr connects to ip:port.
func OpenAddr(ctx context.Context, d *net.Dialer, network string, ip net.IP, port int) (*Conn, error) {
	return open(ctx, d, network, hostPort(ipHost(ip), port))
}

// OpenHostFrom connects to host:port from localIP:localPort.
// A nil localIP binds to the wildcard address, a zero localPort to an
// ephemeral port.
func OpenHostFrom(ctx context.Context, d *net.Dialer, network, host string, port int, localIP net.IP, localPort int) (*Conn, error) {
	return open(ctx, withLocal(d, localAddr(localIP, localPort)), network, hostPort(host, port))
}

// OpenAddrFrom connects to ip:port from localIP:localPort.
func OpenAddrFrom(ctx context.Context, d *net.Dialer, network string, ip net.IP, port int, localIP net.IP, localPort int) (*Conn, error) {
	return open(ctx, withLocal(d, localAddr(localIP, localPort)), network, hostPort(ipHost(ip), port))
}

func open(ctx context.Context, d *net.Dialer, network, address string) (*Conn, error) {
	nc, err := dialer(d).DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return Wrap(nc), nil
}

func dialer(d *net.Dialer) *net.Dialer {
	if d == nil {
		return &net.Dialer{}
	}
	return d
}

// withLocal returns a copy of d bound to local.
func withLocal(d *net.Dialer, local net.Addr) *net.Dialer {
	cp := *dialer(d)
	cp.LocalAddr = local
	return &cp
}

func localAddr(ip net.IP, port int) net.Addr {
	return &net.TCPAddr{IP: ip, Port: port}
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ipHost renders ip for JoinHostPort. A nil ip means the local system.
func ipHost(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
