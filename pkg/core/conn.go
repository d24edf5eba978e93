package core

import "net"

// CountedConn is a network connection that keeps running byte counters.
type CountedConn interface {
	net.Conn

	// BytesRead returns the number of bytes read through the connection.
	BytesRead() uint64

	// BytesWritten returns the number of bytes written through the connection.
	BytesWritten() uint64
}

// Registry records connections as they are created.
// Implementations receive a reference only and must not close it.
type Registry interface {
	// Register records a newly created connection.
	Register(conn CountedConn)
}

// RegistryFunc adapts a plain function to the Registry interface.
type RegistryFunc func(conn CountedConn)

// Register calls f(conn).
func (f RegistryFunc) Register(conn CountedConn) { f(conn) }

// ReadCloser is the read side a counted reader wraps.
type ReadCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

// WriteFlushCloser is the write side a counted writer wraps.
type WriteFlushCloser interface {
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}

// ConnMetrics contains byte counters for a connection.
type ConnMetrics struct {
	// BytesRead is the number of bytes read from the connection.
	BytesRead uint64

	// BytesWritten is the number of bytes written to the connection.
	BytesWritten uint64
}

// Add returns the element-wise sum of m and o.
func (m ConnMetrics) Add(o ConnMetrics) ConnMetrics {
	return ConnMetrics{
		BytesRead:    m.BytesRead + o.BytesRead,
		BytesWritten: m.BytesWritten + o.BytesWritten,
	}
}
