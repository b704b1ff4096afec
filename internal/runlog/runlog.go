// Package runlog manages a pipeline run's artifact directory: per-phase
// JSON-lines logs, phase output snapshots, raw response capture, and the
// final report file.
package runlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run is one pipeline run's artifact directory. All writes are sequential
// from the coordinating task; files are append-only.
type Run struct {
	ID  string
	Dir string

	mu    sync.Mutex
	files []*os.File
}

// New creates the run directory under runsDir. The identifier is derived
// from the start timestamp, with a short random suffix against collisions.
func New(runsDir string) (*Run, error) {
	id := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	dir := filepath.Join(runsDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Run{ID: id, Dir: dir}, nil
}

// PhaseLogger returns a logger writing JSON lines to <phase>_log.jsonl.
// Every record carries the phase and run_id.
func (r *Run) PhaseLogger(phase string) (*slog.Logger, error) {
	path := filepath.Join(r.Dir, phase+"_log.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open phase log: %w", err)
	}

	r.mu.Lock()
	r.files = append(r.files, f)
	r.mu.Unlock()

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	return slog.New(handler).With("phase", phase, "run_id", r.ID), nil
}

// SaveSnapshot writes a phase output as indented JSON to <name>.json.
func (r *Run) SaveSnapshot(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", name, err)
	}
	path := filepath.Join(r.Dir, name+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s snapshot: %w", name, err)
	}
	return nil
}

// AppendResponse appends one raw agent response as a JSON line to
// extraction_responses.jsonl. Marshal failures are logged and swallowed;
// debug capture must never fail an extraction.
func (r *Run) AppendResponse(source string, payload any) {
	entry := map[string]any{"source": source, "response": payload}
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("Failed to marshal raw response", "source", source, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.Dir, "extraction_responses.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("Failed to open raw response log", "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		slog.Warn("Failed to append raw response", "source", source, "error", err)
	}
}

// WriteReport writes the final Markdown report and returns its path.
func (r *Run) WriteReport(markdown string) (string, error) {
	path := filepath.Join(r.Dir, "report.md")
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Close releases the phase log files.
func (r *Run) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.files = nil
	return firstErr
}
