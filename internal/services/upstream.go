package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/codyseavey/gameradar/internal/metrics"
)

// ErrUpstreamStatus is returned by fetchJSON for non-2xx responses
var ErrUpstreamStatus = errors.New("upstream returned non-success status")

// maxErrorBody caps how much of a failed response body ends up in logs
const maxErrorBody = 512

// fetchJSON issues a GET to url and decodes a JSON body into out.
// upstream labels the request in metrics.
func fetchJSON(ctx context.Context, client *http.Client, upstream, url, userAgent string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(upstream, "transport_error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequestsTotal.WithLabelValues(upstream, "bad_status").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %d %s", ErrUpstreamStatus, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(upstream, "malformed").Inc()
		return fmt.Errorf("failed to decode response: %w", err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(upstream, "ok").Inc()
	return nil
}
