package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/thinkscotty/medialens/internal/agent"
	"github.com/thinkscotty/medialens/internal/ai"
	"github.com/thinkscotty/medialens/internal/schema"
	"github.com/thinkscotty/medialens/internal/sources"
)

// Planner runs phase 1: selecting sources from the catalog. Any failure
// here is fatal to the run; there is no fallback source list and no retry.
type Planner struct {
	Provider ai.Provider
	Model    string
	Catalog  []schema.NewsSource
	Logger   *slog.Logger
}

func (p *Planner) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run invokes the planning agent (no tools) and validates its output.
func (p *Planner) Run(ctx context.Context, topic string, numSources int) (*schema.PlanningOutput, error) {
	if numSources < schema.MinPlanningSources || numSources > schema.MaxPlanningSources {
		return nil, &schema.ValidationError{
			Field:  "num_sources",
			Reason: fmt.Sprintf("requested %d sources, allowed range is [%d, %d]", numSources, schema.MinPlanningSources, schema.MaxPlanningSources),
		}
	}

	p.log().Info("Planning phase starting", "topic", topic, "num_sources", numSources, "catalog_size", len(p.Catalog))

	a := agent.New(p.Provider, p.Model, nil, planningFormat)
	resp, err := a.Invoke(ctx, buildPlanningPrompt(topic, sources.FormatForPlanning(p.Catalog), numSources))
	if err != nil {
		return nil, fmt.Errorf("planning agent call failed: %w", err)
	}

	p.log().Info("Planning agent call finished",
		"has_structured_response", resp.Structured != nil,
		"tokens", resp.TokensUsed)

	if resp.Structured == nil {
		return nil, fmt.Errorf("planning: %w", &MissingStructuredOutputError{Content: truncate(resp.Content, 500)})
	}

	var out schema.PlanningOutput
	if err := json.Unmarshal(resp.Structured, &out); err != nil {
		return nil, fmt.Errorf("planning output does not match schema: %w", err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("planning output invalid: %w", err)
	}

	p.log().Info("Planning complete", "selected", len(out.SelectedSources), "rationale", out.Rationale)
	return &out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
