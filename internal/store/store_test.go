package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/thinkscotty/medialens/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListRuns(t *testing.T) {
	s := openTestStore(t)

	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	rec := RunRecord{
		ID:           "20260830_100000_abcd1234",
		Topic:        "energy prices",
		Model:        "deepseek-chat",
		TotalChecked: 5,
		WithCoverage: 3,
		ReportPath:   "runs/20260830_100000_abcd1234/report.md",
		StartedAt:    started,
		FinishedAt:   started.Add(2 * time.Minute),
	}
	results := []schema.SourceProcessingResult{
		{Country: "Japan", MediaName: "NHK", HomepageURL: "https://www3.nhk.or.jp/news/", FoundCoverage: true,
			Article: &schema.ArticleExtraction{Headline: "Energy update", ArticleURL: "https://example.com/a", CoreViewpoint: "x"}},
		{Country: "Russia", MediaName: "TASS", HomepageURL: "https://tass.com/", Error: "ToolError: timeout"},
	}

	if err := s.RecordRun(rec, results); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != rec.ID || got.Topic != rec.Topic || got.Model != rec.Model {
		t.Errorf("run = %+v, want %+v", got, rec)
	}
	if got.TotalChecked != 5 || got.WithCoverage != 3 {
		t.Errorf("counts = %d/%d, want 5/3", got.WithCoverage, got.TotalChecked)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := RunRecord{
			ID:         string(rune('a'+i)) + "-run",
			Topic:      "t",
			Model:      "m",
			StartedAt:  base.AddDate(0, 0, i),
			FinishedAt: base.AddDate(0, 0, i),
		}
		if err := s.RecordRun(rec, nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.RecentRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "c-run" || runs[1].ID != "b-run" {
		t.Errorf("order = %q, %q; want newest first", runs[0].ID, runs[1].ID)
	}
}

func TestNewFailsOnUnusablePath(t *testing.T) {
	// A directory is not a database file; New must fail cleanly instead
	// of handing back a half-open store.
	s, err := New(t.TempDir())
	if err == nil {
		s.Close()
		t.Fatal("New() on a directory = nil error, want failure")
	}
	if s != nil {
		t.Errorf("New() returned a store alongside error %v", err)
	}
}

func TestRecentRunsEmptyDatabase(t *testing.T) {
	s := openTestStore(t)
	runs, err := s.RecentRuns(0)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs from empty database", len(runs))
	}
}
