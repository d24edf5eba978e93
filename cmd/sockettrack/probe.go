package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/irctrakz/sockettrack/pkg/logging"
)

// probe fetches url with every connection dialed through the factory.
func (a *app) probe(ctx context.Context, url string) error {
	tr := &http.Transport{DialContext: a.factory.DialContext}
	defer tr.CloseIdleConnections()
	client := &http.Client{Transport: tr}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		logging.Warnf("Probe: GET %s failed: %v", url, err)
		return err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return fmt.Errorf("probe: reading body: %w", err)
	}

	total := a.tracker.Totals()
	logging.Infof("Probe: GET %s -> %s, body=%d bytes, wire read=%d written=%d",
		url, resp.Status, n, total.BytesRead, total.BytesWritten)
	return nil
}
