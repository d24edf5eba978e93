// Package track keeps a registry of created connections for later inspection.
package track

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irctrakz/sockettrack/pkg/core"
	"github.com/irctrakz/sockettrack/pkg/faults"
	"github.com/irctrakz/sockettrack/pkg/logging"
	"github.com/sirupsen/logrus"
)

// ErrUnknownConnection is returned by Lookup for ids that are not tracked.
// Lookups of pruned or evicted ids are routine, so this carries no stack.
var ErrUnknownConnection = faults.New("unknown connection")

// closer is implemented by connections that can report whether they were closed.
type closer interface {
	Closed() bool
}

// Entry is a point-in-time view of one tracked connection.
type Entry struct {
	ID           uint64    `json:"id"`
	Opened       time.Time `json:"opened"`
	Local        string    `json:"local,omitempty"`
	Remote       string    `json:"remote,omitempty"`
	BytesRead    uint64    `json:"bytes_read"`
	BytesWritten uint64    `json:"bytes_written"`
	Closed       bool      `json:"closed"`
}

type record struct {
	id     uint64
	opened time.Time
	conn   core.CountedConn
}

// Tracker records connections handed to it. It never closes them.
type Tracker struct {
	config core.TrackerConfig

	mu      sync.Mutex
	records map[uint64]*record
	order   []uint64

	nextID  atomic.Uint64
	evicted atomic.Uint64
	now     func() time.Time
}

// Ensure Tracker implements core.Registry
var _ core.Registry = (*Tracker)(nil)

// NewTracker creates an empty tracker.
func NewTracker(config core.TrackerConfig) *Tracker {
	return &Tracker{
		config:  config,
		records: make(map[uint64]*record),
		now:     time.Now,
	}
}

// Register records conn and assigns it the next id.
func (t *Tracker) Register(conn core.CountedConn) {
	id := t.nextID.Add(1)
	rec := &record{id: id, opened: t.now(), conn: conn}

	t.mu.Lock()
	t.records[id] = rec
	t.order = append(t.order, id)
	for t.config.MaxEntries > 0 && len(t.order) > t.config.MaxEntries {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.records, oldest)
		t.evicted.Add(1)
	}
	t.mu.Unlock()

	logging.DebugWithFields(logrus.Fields{
		"component": "tracker",
		"id":        id,
	}, "Connection registered")
}

// Len returns the number of tracked connections.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Evicted returns how many entries were dropped because of MaxEntries.
func (t *Tracker) Evicted() uint64 {
	return t.evicted.Load()
}

// Lookup returns the entry for id.
func (t *Tracker) Lookup(id uint64) (Entry, error) {
	t.mu.Lock()
	rec, ok := t.records[id]
	t.mu.Unlock()
	if !ok {
		return Entry{}, ErrUnknownConnection
	}
	return rec.entry(), nil
}

// Snapshot returns all tracked connections ordered by id.
func (t *Tracker) Snapshot() []Entry {
	t.mu.Lock()
	recs := make([]*record, 0, len(t.records))
	for _, rec := range t.records {
		recs = append(recs, rec)
	}
	t.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].id < recs[j].id })
	entries := make([]Entry, len(recs))
	for i, rec := range recs {
		entries[i] = rec.entry()
	}
	return entries
}

// Totals sums the counters of all tracked connections.
func (t *Tracker) Totals() core.ConnMetrics {
	var total core.ConnMetrics
	for _, e := range t.Snapshot() {
		total = total.Add(core.ConnMetrics{BytesRead: e.BytesRead, BytesWritten: e.BytesWritten})
	}
	return total
}

// Prune forgets closed connections and returns how many were dropped.
func (t *Tracker) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.order[:0]
	pruned := 0
	for _, id := range t.order {
		if isClosed(t.records[id].conn) {
			delete(t.records, id)
			pruned++
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	return pruned
}

func (r *record) entry() Entry {
	e := Entry{
		ID:           r.id,
		Opened:       r.opened,
		BytesRead:    r.conn.BytesRead(),
		BytesWritten: r.conn.BytesWritten(),
		Closed:       isClosed(r.conn),
	}
	if a := r.conn.LocalAddr(); a != nil {
		e.Local = a.String()
	}
	if a := r.conn.RemoteAddr(); a != nil {
		e.Remote = a.String()
	}
	return e
}

func isClosed(c core.CountedConn) bool {
	if cl, ok := c.(closer); ok {
		return cl.Closed()
	}
	return false
}
