package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/thinkscotty/medialens/internal/ai"
	"github.com/thinkscotty/medialens/internal/schema"
	"github.com/thinkscotty/medialens/internal/sources"
)

const planJSON = `{
	"topic": "climate policy",
	"selected_sources": [
		{"country": "United States", "media_name": "AP", "url": "https://www.ap.org/", "priority": "high"},
		{"country": "Germany", "media_name": "Die Zeit", "url": "https://www.zeit.de/index", "priority": "medium"}
	],
	"rationale": "Covers both sides of the Atlantic with established outlets."
}`

func TestPlanningSuccess(t *testing.T) {
	p := &Planner{
		Provider: respondWith(planJSON),
		Model:    "test-model",
		Catalog:  sources.Catalog,
	}
	out, err := p.Run(context.Background(), "climate policy", 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.SelectedSources) != 2 {
		t.Fatalf("selected %d sources, want 2", len(out.SelectedSources))
	}
	if out.SelectedSources[0].Priority != schema.PriorityHigh {
		t.Errorf("first priority = %q, want high", out.SelectedSources[0].Priority)
	}
}

func TestPlanningRejectsOutOfRangeRequest(t *testing.T) {
	// The bounds check happens before any agent call; a provider that
	// fails loudly proves the agent was never invoked.
	var called bool
	p := &Planner{
		Provider: &fakeProvider{chat: func(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
			called = true
			return nil, errors.New("should not be called")
		}},
		Catalog: sources.Catalog,
	}

	for _, n := range []int{0, -1, 16, 100} {
		if _, err := p.Run(context.Background(), "topic", n); err == nil {
			t.Errorf("Run(numSources=%d) = nil error, want validation error", n)
		}
	}
	if called {
		t.Error("agent was invoked despite out-of-range request")
	}

	for _, n := range []int{1, 15} {
		p.Provider = respondWith(planJSON)
		if _, err := p.Run(context.Background(), "topic", n); err != nil {
			t.Errorf("Run(numSources=%d) error = %v, want nil", n, err)
		}
	}
}

func TestPlanningFatalOnMissingStructuredOutput(t *testing.T) {
	p := &Planner{
		Provider: respondWith("Here are my thoughts on source selection, in prose."),
		Catalog:  sources.Catalog,
	}
	_, err := p.Run(context.Background(), "topic", 5)
	if err == nil {
		t.Fatal("Run() = nil error, want missing structured output failure")
	}
	var mErr *MissingStructuredOutputError
	if !errors.As(err, &mErr) {
		t.Errorf("error = %v, want MissingStructuredOutputError in chain", err)
	}
}

func TestPlanningFatalOnInvalidOutput(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"zero sources", `{"topic": "x", "selected_sources": [], "rationale": "none"}`},
		{"missing rationale", `{"topic": "x", "selected_sources": [{"country": "A", "media_name": "B", "url": "https://b.example.com/", "priority": "high"}], "rationale": ""}`},
		{"bad source url", `{"topic": "x", "selected_sources": [{"country": "A", "media_name": "B", "url": "b.example.com", "priority": "high"}], "rationale": "ok"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Planner{Provider: respondWith(tt.payload), Catalog: sources.Catalog}
			if _, err := p.Run(context.Background(), "x", 5); err == nil {
				t.Error("Run() = nil error, want validation failure")
			}
		})
	}
}

func TestPlanningFatalOnProviderError(t *testing.T) {
	p := &Planner{
		Provider: &fakeProvider{chat: func(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
			return nil, errors.New("upstream 503")
		}},
		Catalog: sources.Catalog,
	}
	if _, err := p.Run(context.Background(), "topic", 5); err == nil {
		t.Error("Run() = nil error, want provider failure")
	}
}
