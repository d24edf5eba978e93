package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/irctrakz/sockettrack/pkg/config"
	"github.com/irctrakz/sockettrack/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocal(t *testing.T) {
	ip, port, err := parseLocal("127.0.0.1:4000")
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.IPv4(127, 0, 0, 1)))
	assert.Equal(t, 4000, port)

	ip, port, err = parseLocal("::1")
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.IPv6loopback))
	assert.Equal(t, 0, port)

	_, _, err = parseLocal("not-an-ip")
	assert.Error(t, err)
	_, _, err = parseLocal("127.0.0.1:http")
	assert.Error(t, err)
}

func TestEchoAndCreate(t *testing.T) {
	a, err := newApp(config.DefaultConfig())
	require.NoError(t, err)

	// Reserve a port for the echo endpoint.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen locally: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- a.serveEcho(ctx, addr.String()) }()

	var c interface {
		net.Conn
		BytesRead() uint64
		BytesWritten() uint64
	}
	require.Eventually(t, func() bool {
		conn, err := a.create(ctx, "127.0.0.1", addr.Port, "127.0.0.1")
		if err != nil {
			return false
		}
		c = conn
		return true
	}, 2*time.Second, 20*time.Millisecond)
	defer c.Close()

	_, err = c.Write([]byte("hello"))
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = io.ReadFull(c, buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), c.BytesRead())
	assert.Equal(t, uint64(5), c.BytesWritten())

	var out bytes.Buffer
	require.NoError(t, a.summary(&out, true))
	var entries []track.Entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	// The client connection and the accepted echo connection.
	assert.Len(t, entries, 2)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("echo endpoint did not stop")
	}
}
