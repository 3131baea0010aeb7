package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Exporter ships stats snapshots somewhere outside the process.
type Exporter interface {
	Export(ctx context.Context, snap Snapshot) error
	Close() error
}

// HTTPExporter POSTs each snapshot as JSON to an endpoint.
type HTTPExporter struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPExporter(endpoint, apiKey string) *HTTPExporter {
	return &HTTPExporter{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *HTTPExporter) Export(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("stats export failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (e *HTTPExporter) Close() error { return nil }

// LogExporter writes snapshots to a structured logger (for debugging).
type LogExporter struct {
	logger *slog.Logger
}

func NewLogExporter(logger *slog.Logger) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExporter{logger: logger}
}

func (e *LogExporter) Export(ctx context.Context, snap Snapshot) error {
	e.logger.InfoContext(ctx, "leaderboard stats",
		"total_submissions", snap.TotalSubmissions,
		"difficulties", len(snap.Difficulties),
		"days", len(snap.SubmissionsByDay))
	return nil
}

func (e *LogExporter) Close() error { return nil }

// MultiExporter combines multiple exporters
type MultiExporter struct {
	exporters []Exporter
}

func NewMultiExporter(exporters ...Exporter) *MultiExporter {
	return &MultiExporter{exporters: exporters}
}

func (e *MultiExporter) Export(ctx context.Context, snap Snapshot) error {
	for _, exporter := range e.exporters {
		if err := exporter.Export(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

func (e *MultiExporter) Close() error {
	for _, exporter := range e.exporters {
		if err := exporter.Close(); err != nil {
			return err
		}
	}
	return nil
}

// RunExport exports a snapshot of stats every interval until ctx is done.
// Export errors are logged and the loop continues.
func RunExport(ctx context.Context, stats *Stats, exporter Exporter, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 || exporter == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := exporter.Export(ctx, stats.Snapshot()); err != nil {
				logger.WarnContext(ctx, "stats export failed", "error", err)
			}
		}
	}
}
