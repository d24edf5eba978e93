package main

import (
	"context"
	"io"
	"net"

	"github.com/irctrakz/sockettrack/pkg/instrument"
	"github.com/irctrakz/sockettrack/pkg/logging"
	"github.com/sirupsen/logrus"
)

// serveEcho accepts connections on addr and echoes everything back until
// ctx is done. Accepted connections are instrumented and tracked too.
func (a *app) serveEcho(ctx context.Context, addr string) error {
	ln, err := net.Listen(a.cfg.Factory.Network, addr)
	if err != nil {
		return err
	}
	logging.Infof("Echo endpoint listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c := instrument.Wrap(nc)
		a.tracker.Register(c)
		go echo(c)
	}
}

func echo(c *instrument.Conn) {
	defer c.Close()
	if _, err := io.Copy(c, c); err != nil {
		logging.Debugf("Echo: %v", err)
	}
	logging.DebugWithFields(logrus.Fields{
		"component":     "echo",
		"remote":        c.RemoteAddr().String(),
		"bytes_read":    c.BytesRead(),
		"bytes_written": c.BytesWritten(),
	}, "Echo connection finished")
}
