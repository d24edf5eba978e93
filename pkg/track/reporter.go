package track

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/irctrakz/sockettrack/pkg/core"
	"github.com/irctrakz/sockettrack/pkg/logging"
	"github.com/sirupsen/logrus"
)

// Report is one dump of the tracker state.
type Report struct {
	Timestamp   string  `json:"ts"`
	Connections int     `json:"connections"`
	Evicted     uint64  `json:"evicted"`
	Pruned      int     `json:"pruned"`
	Total       Totals  `json:"total"`
	Entries     []Entry `json:"entries"`
}

// Totals is the summed byte counters of a report.
type Totals struct {
	BytesRead    uint64 `json:"bytes_read"`
	BytesWritten uint64 `json:"bytes_written"`
}

// Reporter periodically logs the tracker state.
type Reporter struct {
	tracker  *Tracker
	interval time.Duration
	format   string
	prune    bool
	now      func() time.Time
}

// NewReporter builds a reporter from the tracker configuration.
// It returns nil when the configuration disables reports.
func NewReporter(t *Tracker, config core.TrackerConfig) (*Reporter, error) {
	iv := strings.TrimSpace(config.ReportInterval)
	if iv == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(iv)
	if err != nil {
		return nil, fmt.Errorf("invalid report interval %q: %w", iv, err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("invalid report interval %q: must be positive", iv)
	}

	format := strings.ToLower(strings.TrimSpace(config.ReportFormat))
	switch format {
	case "":
		format = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("unsupported report format: %s", config.ReportFormat)
	}

	return &Reporter{
		tracker:  t,
		interval: d,
		format:   format,
		prune:    config.PruneOnReport,
		now:      time.Now,
	}, nil
}

// Run dumps a report immediately and then every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		r.Dump()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect builds a report, pruning closed connections afterwards if configured.
func (r *Reporter) Collect() Report {
	entries := r.tracker.Snapshot()
	rep := Report{
		Timestamp:   r.now().UTC().Format(time.RFC3339),
		Connections: len(entries),
		Evicted:     r.tracker.Evicted(),
		Entries:     entries,
	}
	for _, e := range entries {
		rep.Total.BytesRead += e.BytesRead
		rep.Total.BytesWritten += e.BytesWritten
	}
	if r.prune {
		rep.Pruned = r.tracker.Prune()
	}
	return rep
}

// Dump logs one report in the configured format.
func (r *Reporter) Dump() {
	rep := r.Collect()
	if r.format == "json" {
		b, err := json.Marshal(rep)
		if err != nil {
			logging.Warnf("Report: marshal failed: %v", err)
			return
		}
		logging.Infof("%s", b)
		return
	}

	logging.InfoWithFields(logrus.Fields{
		"component":     "reporter",
		"connections":   rep.Connections,
		"bytes_read":    rep.Total.BytesRead,
		"bytes_written": rep.Total.BytesWritten,
		"evicted":       rep.Evicted,
		"pruned":        rep.Pruned,
	}, "Connection report")
	for _, e := range rep.Entries {
		logging.DebugWithFields(logrus.Fields{
			"component":     "reporter",
			"id":            e.ID,
			"local":         e.Local,
			"remote":        e.Remote,
			"bytes_read":    e.BytesRead,
			"bytes_written": e.BytesWritten,
			"closed":        e.Closed,
		}, "Connection")
	}
}
