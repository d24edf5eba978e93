package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/irctrakz/sockettrack/pkg/config"
	"github.com/irctrakz/sockettrack/pkg/factory"
	"github.com/irctrakz/sockettrack/pkg/instrument"
	"github.com/irctrakz/sockettrack/pkg/logging"
	"github.com/irctrakz/sockettrack/pkg/track"
	"github.com/mkideal/cli"
	clix "github.com/mkideal/cli/ext"
)

type opts struct {
	cli.Helper

	Config  string        `cli:"c,config" usage:"Config file (.json, .yaml or .yml)"`
	Debug   bool          `cli:"d,debug" usage:"Debug output"`
	Echo    string        `cli:"echo" name:"addr" usage:"Serve a local echo endpoint instead of connecting"`
	Probe   string        `cli:"probe" name:"url" usage:"Fetch an HTTP URL through the factory and report byte counts"`
	Local   string        `cli:"l,local" name:"ip[:port]" usage:"Local address to bind outgoing connections to"`
	Timeout clix.Duration `cli:"timeout" name:"duration" usage:"Give up connecting after this long"`
	Report  string        `cli:"report" name:"interval" usage:"Periodic connection report interval, e.g. 10s"`
	JSON    bool          `cli:"json" usage:"Print the final summary as JSON"`
}

// app holds the wired components for one run.
type app struct {
	cfg      *config.Config
	tracker  *track.Tracker
	factory  *factory.Factory
	reporter *track.Reporter
}

func (o *opts) load() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.Config != "" {
		if err := config.LoadFromFile(o.Config, cfg); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.Report != "" {
		cfg.Tracker.ReportInterval = o.Report
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.ApplyLogging(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cfg *config.Config) (*app, error) {
	tracker := track.NewTracker(cfg.Tracker)
	reporter, err := track.NewReporter(tracker, cfg.Tracker)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		tracker:  tracker,
		factory:  factory.New(tracker, cfg.Factory),
		reporter: reporter,
	}, nil
}

func main() {
	cli.Run(new(opts), func(cmdline *cli.Context) error {
		o := cmdline.Argv().(*opts)

		cfg, err := o.load()
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if a.reporter != nil {
			go a.reporter.Run(ctx)
		}

		switch {
		case o.Echo != "":
			err = a.serveEcho(ctx, o.Echo)
		case o.Probe != "":
			err = a.probe(ctx, o.Probe)
		default:
			err = a.pipe(ctx, o, cmdline.Args())
		}
		if err != nil {
			return err
		}
		return a.summary(os.Stdout, o.JSON)
	}, "Open instrumented TCP connections and report bytes read and written.")
}

// pipe connects to host port and copies stdin to the connection and the
// connection to stdout.
func (a *app) pipe(ctx context.Context, o *opts, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sockettrack [options] <host> <port>")
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}

	dialCtx := ctx
	if o.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, o.Timeout.Duration)
		defer cancel()
	}

	conn, err := a.create(dialCtx, args[0], port, o.Local)
	if err != nil {
		return err
	}
	defer conn.Close()
	logging.Infof("Connected to %s", conn.RemoteAddr())

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(os.Stdout, conn)
		done <- err
	}()

	if _, err := io.Copy(conn, os.Stdin); err != nil && !conn.Closed() {
		logging.Warnf("Write side stopped: %v", err)
	}
	if err := conn.CloseWrite(); err != nil && !conn.Closed() {
		logging.Warnf("Half-close failed: %v", err)
	}
	if err := <-done; err != nil && !conn.Closed() {
		logging.Warnf("Read side stopped: %v", err)
	}
	return nil
}

// create picks the factory call matching the target and local bind.
func (a *app) create(ctx context.Context, host string, port int, local string) (*instrument.Conn, error) {
	f := a.factory
	ip := net.ParseIP(host)

	if local == "" {
		if ip != nil {
			return f.CreateSocketAddr(ctx, ip, port)
		}
		return f.CreateSocketHost(ctx, host, port)
	}

	localIP, localPort, err := parseLocal(local)
	if err != nil {
		return nil, err
	}
	if ip != nil {
		return f.CreateSocketAddrFrom(ctx, ip, port, localIP, localPort)
	}
	return f.CreateSocketHostFrom(ctx, host, port, localIP, localPort)
}

// parseLocal accepts "ip" or "ip:port".
func parseLocal(s string) (net.IP, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		host, portStr = s, "0"
	}
	ip := net.ParseIP(host)
	if ip == nil && host != "" {
		return nil, 0, fmt.Errorf("invalid local address: %s", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid local port: %s", s)
	}
	return ip, port, nil
}

// summary prints the per-connection counters of this run.
func (a *app) summary(w io.Writer, asJSON bool) error {
	entries := a.tracker.Snapshot()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "#%d %s -> %s read=%d written=%d\n", e.ID, e.Local, e.Remote, e.BytesRead, e.BytesWritten)
	}
	return nil
}
