package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/setevik/cranewatch/internal/metrics"
	"github.com/setevik/cranewatch/internal/telemetry"
)

// Engine calls the external prescriptive engine over HTTP.
type Engine struct {
	url    string
	client *http.Client
}

// NewEngine creates an engine gateway. An empty url disables the remote
// call entirely and every analysis uses the heuristic fallback.
func NewEngine(url string, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze converts a snapshot into a diagnosis. Any engine failure
// (transport, timeout, malformed or out-of-contract response) is absorbed
// here and answered with the fallback heuristic; callers never see it.
func (e *Engine) Analyze(ctx context.Context, snap telemetry.Snapshot) Diagnosis {
	if e.url == "" {
		slog.Debug("analysis engine not configured, using heuristic")
		metrics.Analyses.WithLabelValues("fallback").Inc()
		return Fallback(snap)
	}

	d, err := e.call(ctx, snap)
	if err != nil {
		slog.Warn("analysis engine unavailable, using heuristic", "error", err)
		metrics.Analyses.WithLabelValues("fallback").Inc()
		return Fallback(snap)
	}

	metrics.Analyses.WithLabelValues("engine").Inc()
	return d
}

func (e *Engine) call(ctx context.Context, snap telemetry.Snapshot) (Diagnosis, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("encoding snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return Diagnosis{}, fmt.Errorf("creating engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("calling engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Diagnosis{}, fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("reading engine response: %w", err)
	}

	var d Diagnosis
	if err := json.Unmarshal([]byte(stripFences(string(body))), &d); err != nil {
		return Diagnosis{}, fmt.Errorf("decoding engine response: %w", err)
	}
	if err := d.validate(); err != nil {
		return Diagnosis{}, fmt.Errorf("engine response rejected: %w", err)
	}
	return d, nil
}

// stripFences removes markdown code fences some engines wrap around their
// JSON output.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
