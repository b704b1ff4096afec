package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/thinkscotty/medialens/internal/ai"
	"github.com/thinkscotty/medialens/internal/schema"
)

func mixedResults(total, covered int) []schema.SourceProcessingResult {
	out := make([]schema.SourceProcessingResult, total)
	for i := range out {
		out[i] = schema.SourceProcessingResult{
			Country:     fmt.Sprintf("Country %d", i),
			MediaName:   fmt.Sprintf("Outlet %d", i),
			HomepageURL: fmt.Sprintf("https://outlet%d.example.com/", i),
		}
		if i < covered {
			out[i].FoundCoverage = true
			out[i].Article = &schema.ArticleExtraction{
				Headline:      fmt.Sprintf("Headline from outlet %d", i),
				ArticleURL:    fmt.Sprintf("https://outlet%d.example.com/story", i),
				CoreViewpoint: "A distinct editorial angle described in a sentence of sufficient length and word count.",
			}
		} else {
			out[i].Error = "ToolError: browser tool navigate failed: timeout"
		}
	}
	return out
}

const aggJSON = `{
	"topic": "the model's own guess at the topic",
	"total_sources_checked": 999,
	"sources_with_coverage": 999,
	"comparison_table": [
		{"country": "Country 0", "media_name": "Outlet 0", "article_title": "Headline from outlet 0", "article_url": "https://outlet0.example.com/story", "core_viewpoint": "Angle zero.", "sentiment": "critical"},
		{"country": "Country 1", "media_name": "Outlet 1", "article_title": "Headline from outlet 1", "article_url": "https://outlet1.example.com/story", "core_viewpoint": "Angle one."}
	],
	"summary": "Coverage splits along regional lines, with clear disagreement on causes.",
	"processing_timestamp": "1999-01-01T00:00:00Z"
}`

func TestAggregationOverwritesHeaderFields(t *testing.T) {
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	a := &Aggregator{
		Provider: respondWith(aggJSON),
		now:      func() time.Time { return fixed },
	}

	out, err := a.Run(context.Background(), "energy prices", mixedResults(10, 7))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The model's guesses for topic, counts, and timestamp are discarded.
	if out.Topic != "energy prices" {
		t.Errorf("Topic = %q, want locally computed topic", out.Topic)
	}
	if out.TotalSourcesChecked != 10 {
		t.Errorf("TotalSourcesChecked = %d, want 10", out.TotalSourcesChecked)
	}
	if out.SourcesWithCoverage != 7 {
		t.Errorf("SourcesWithCoverage = %d, want 7", out.SourcesWithCoverage)
	}
	if out.ProcessingTimestamp != "2026-08-30T12:00:00Z" {
		t.Errorf("ProcessingTimestamp = %q, want fixed clock value", out.ProcessingTimestamp)
	}

	// Table content is the model's to produce.
	if len(out.ComparisonTable) != 2 {
		t.Fatalf("table rows = %d, want 2", len(out.ComparisonTable))
	}
	if out.ComparisonTable[0].Sentiment != "critical" {
		t.Errorf("row 0 sentiment = %q, want critical", out.ComparisonTable[0].Sentiment)
	}
}

func TestAggregationSendsOnlyCoveredResults(t *testing.T) {
	var prompt string
	provider := &fakeProvider{chat: func(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
		prompt = req.Messages[len(req.Messages)-1].Content
		return &ai.ChatResponse{Content: aggJSON}, nil
	}}

	a := &Aggregator{Provider: provider}
	if _, err := a.Run(context.Background(), "energy prices", mixedResults(5, 2)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(prompt, "Outlet 0") || !strings.Contains(prompt, "Outlet 1") {
		t.Errorf("prompt missing covered outlets:\n%s", prompt)
	}
	if strings.Contains(prompt, "Outlet 3") {
		t.Errorf("prompt leaks failed outlet into aggregation input:\n%s", prompt)
	}
}

func TestAggregationZeroCoverage(t *testing.T) {
	payload := `{
		"topic": "x", "total_sources_checked": 0, "sources_with_coverage": 0,
		"comparison_table": [],
		"summary": "None of the checked sources had coverage of this topic.",
		"processing_timestamp": "x"
	}`
	a := &Aggregator{Provider: respondWith(payload)}
	out, err := a.Run(context.Background(), "very obscure topic", mixedResults(4, 0))
	if err != nil {
		t.Fatalf("Run() error = %v, zero coverage must not be fatal", err)
	}
	if out.TotalSourcesChecked != 4 || out.SourcesWithCoverage != 0 {
		t.Errorf("counts = %d/%d, want 4/0", out.SourcesWithCoverage, out.TotalSourcesChecked)
	}
}

func TestAggregationFatalOnMissingStructuredOutput(t *testing.T) {
	a := &Aggregator{Provider: respondWith("Prose summary without any JSON object at all.")}
	if _, err := a.Run(context.Background(), "topic", mixedResults(3, 2)); err == nil {
		t.Fatal("Run() = nil error, want missing structured output failure")
	}
}

func TestAggregationFatalOnEmptySummary(t *testing.T) {
	payload := `{"topic": "x", "total_sources_checked": 1, "sources_with_coverage": 1, "comparison_table": [], "summary": "  ", "processing_timestamp": "x"}`
	a := &Aggregator{Provider: respondWith(payload)}
	if _, err := a.Run(context.Background(), "topic", mixedResults(3, 2)); err == nil {
		t.Fatal("Run() = nil error, want validation failure for blank summary")
	}
}
