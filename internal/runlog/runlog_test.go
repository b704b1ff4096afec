package runlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewCreatesRunDirectory(t *testing.T) {
	runsDir := t.TempDir()
	r, err := New(runsDir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer r.Close()

	if r.ID == "" {
		t.Error("run ID is empty")
	}
	info, err := os.Stat(r.Dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("run dir %q not created: %v", r.Dir, err)
	}
	if filepath.Dir(r.Dir) != runsDir {
		t.Errorf("run dir %q not under %q", r.Dir, runsDir)
	}
}

func TestPhaseLoggerWritesJSONL(t *testing.T) {
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	logger, err := r.PhaseLogger("planning")
	if err != nil {
		t.Fatalf("PhaseLogger() error = %v", err)
	}
	logger.Info("Planning phase starting", "topic", "elections")
	logger.Warn("Something odd")

	data, err := os.ReadFile(filepath.Join(r.Dir, "planning_log.jsonl"))
	if err != nil {
		t.Fatal(err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	var lines int
	for scanner.Scan() {
		lines++
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines, err)
		}
		for _, key := range []string{"timestamp", "level", "phase", "message"} {
			if _, ok := entry[key]; !ok {
				t.Errorf("line %d missing %q: %v", lines, key, entry)
			}
		}
		if entry["phase"] != "planning" {
			t.Errorf("line %d phase = %v", lines, entry["phase"])
		}
	}
	if lines != 2 {
		t.Errorf("got %d log lines, want 2", lines)
	}
}

func TestSaveSnapshot(t *testing.T) {
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	payload := map[string]any{"topic": "elections", "selected": 3}
	if err := r.SaveSnapshot("planning_output", payload); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(r.Dir, "planning_output.json"))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if got["topic"] != "elections" {
		t.Errorf("snapshot topic = %v", got["topic"])
	}
	// Indented output, for humans poking at run artifacts.
	if !strings.Contains(string(data), "\n  ") {
		t.Errorf("snapshot not indented:\n%s", data)
	}
}

func TestAppendResponse(t *testing.T) {
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	r.AppendResponse("NHK", map[string]any{"tool_rounds": 3})
	r.AppendResponse("TASS", map[string]any{"tool_rounds": 1})

	data, err := os.ReadFile(filepath.Join(r.Dir, "extraction_responses.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d response lines, want 2", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first["source"] != "NHK" {
		t.Errorf("first response source = %v", first["source"])
	}
}

func TestWriteReport(t *testing.T) {
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	path, err := r.WriteReport("# News Aggregation Report: test\n")
	if err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	if filepath.Base(path) != "report.md" {
		t.Errorf("report path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# News Aggregation Report") {
		t.Errorf("report content = %q", data)
	}
}
