package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/thinkscotty/medialens/internal/agent"
	"github.com/thinkscotty/medialens/internal/ai"
	"github.com/thinkscotty/medialens/internal/schema"
)

// Aggregator runs phase 3: synthesizing covered results into the final
// comparison. Failures here are fatal to the run; no retry.
type Aggregator struct {
	Provider ai.Provider
	Model    string
	Logger   *slog.Logger

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

func (a *Aggregator) log() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Aggregator) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// Run filters to covered results, asks the aggregation agent (no tools) for
// a comparison table and summary, then overwrites the agent's topic, counts,
// and timestamp with locally computed values. The model's guesses for those
// fields are discarded on purpose: correctness of the header must not depend
// on model behavior.
func (a *Aggregator) Run(ctx context.Context, topic string, results []schema.SourceProcessingResult) (*schema.AggregationOutput, error) {
	covered := make([]schema.SourceProcessingResult, 0, len(results))
	for _, r := range results {
		if r.FoundCoverage && r.Article != nil {
			covered = append(covered, r)
		}
	}

	a.log().Info("Aggregation phase starting", "topic", topic, "total", len(results), "with_coverage", len(covered))

	resultsJSON, err := json.MarshalIndent(covered, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize extraction results: %w", err)
	}

	ag := agent.New(a.Provider, a.Model, nil, aggregationFormat)
	resp, err := ag.Invoke(ctx, buildAggregationPrompt(topic, len(covered), string(resultsJSON)))
	if err != nil {
		return nil, fmt.Errorf("aggregation agent call failed: %w", err)
	}

	a.log().Info("Aggregation agent call finished",
		"has_structured_response", resp.Structured != nil,
		"tokens", resp.TokensUsed)

	if resp.Structured == nil {
		return nil, fmt.Errorf("aggregation: %w", &MissingStructuredOutputError{Content: truncate(resp.Content, 500)})
	}

	var out schema.AggregationOutput
	if err := json.Unmarshal(resp.Structured, &out); err != nil {
		return nil, fmt.Errorf("aggregation output does not match schema: %w", err)
	}

	// Authoritative header fields, computed locally.
	out.Topic = topic
	out.TotalSourcesChecked = len(results)
	out.SourcesWithCoverage = len(covered)
	out.ProcessingTimestamp = a.clock().UTC().Format(time.RFC3339)

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("aggregation output invalid: %w", err)
	}

	a.log().Info("Aggregation complete", "table_rows", len(out.ComparisonTable))
	return &out, nil
}
