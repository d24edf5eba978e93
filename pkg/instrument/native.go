package instrument

import "net"

// connInput is the native read side of a connection.
// Closing it closes the whole connection.
type connInput struct {
	owner *Conn
	conn  net.Conn
}

func (i *connInput) Read(p []byte) (int, error) { return i.conn.Read(p) }
func (i *connInput) Close() error               { return i.owner.Close() }

// connOutput is the native write side of a connection. Sockets are not
// buffered here, so Flush has nothing to do.
type connOutput struct {
	owner *Conn
	conn  net.Conn
}

func (o *connOutput) Write(p []byte) (int, error) { return o.conn.Write(p) }
func (o *connOutput) Flush() error                { return nil }
func (o *connOutput) Close() error                { return o.owner.Close() }
