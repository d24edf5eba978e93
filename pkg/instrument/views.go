package instrument

import (
	"io"
	"sync/atomic"

	"github.com/irctrakz/sockettrack/pkg/core"
)

// CountingReader counts the bytes actually returned by the reader it wraps.
// End of stream and zero-byte reads leave the count unchanged.
type CountingReader struct {
	r core.ReadCloser
	n atomic.Uint64
}

// NewCountingReader wraps r.
func NewCountingReader(r core.ReadCloser) *CountingReader {
	return &CountingReader{r: r}
}

// Read reads from the underlying reader and adds the transferred byte count.
func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n.Add(uint64(n))
	}
	return n, err
}

// ReadByte reads a single byte. It returns io.EOF at end of stream.
func (cr *CountingReader) ReadByte() (byte, error) {
	if br, ok := cr.r.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		cr.n.Add(1)
		return b, nil
	}

	var buf [1]byte
	for {
		n, err := cr.r.Read(buf[:])
		if n == 1 {
			cr.n.Add(1)
			return buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// Close closes the underlying reader. The count is kept.
func (cr *CountingReader) Close() error {
	return cr.r.Close()
}

// Count returns the number of bytes read so far.
func (cr *CountingReader) Count() uint64 {
	return cr.n.Load()
}

// CountingWriter counts bytes handed to the writer it wraps.
// A write is counted in full once the underlying write succeeds, and not at
// all when it fails.
type CountingWriter struct {
	w core.WriteFlushCloser
	n atomic.Uint64
}

// NewCountingWriter wraps w.
func NewCountingWriter(w core.WriteFlushCloser) *CountingWriter {
	return &CountingWriter{w: w}
}

// Write writes p to the underlying writer.
func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if err == nil {
		cw.n.Add(uint64(len(p)))
	}
	return n, err
}

// WriteByte writes a single byte.
func (cw *CountingWriter) WriteByte(c byte) error {
	var err error
	if bw, ok := cw.w.(io.ByteWriter); ok {
		err = bw.WriteByte(c)
	} else {
		_, err = cw.w.Write([]byte{c})
	}
	if err != nil {
		return err
	}
	cw.n.Add(1)
	return nil
}

// Flush flushes the underlying writer.
func (cw *CountingWriter) Flush() error {
	return cw.w.Flush()
}

// Close closes the underlying writer. The count is kept.
func (cw *CountingWriter) Close() error {
	return cw.w.Close()
}

// Count returns the number of bytes written so far.
func (cw *CountingWriter) Count() uint64 {
	return cw.n.Load()
}
