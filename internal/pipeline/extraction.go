package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/thinkscotty/medialens/internal/agent"
	"github.com/thinkscotty/medialens/internal/ai"
	"github.com/thinkscotty/medialens/internal/browser"
	"github.com/thinkscotty/medialens/internal/schema"
)

// Extraction driver modes.
const (
	ModeSequential = "sequential"
	ModeBatch      = "batch"
)

const (
	defaultBatchSize = 3
	defaultCooldown  = 2 * time.Second
)

// ResponseSink receives raw agent responses for successful extractions, for
// offline debugging. Implementations must tolerate sequential calls only.
type ResponseSink interface {
	AppendResponse(source string, payload any)
}

// Extractor runs phase 2: one SourceProcessingResult per selected source,
// never letting a failure escape the per-source boundary.
type Extractor struct {
	Provider  ai.Provider
	Model     string
	Sessions  browser.Factory
	Mode      string        // ModeSequential (default) or ModeBatch
	BatchSize int           // batch mode only; default 3
	Cooldown  time.Duration // pause between batches; default 2s
	Logger    *slog.Logger
	Responses ResponseSink // optional
}

func (e *Extractor) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Run processes the selected sources and returns results in processing
// order: by priority (high first), stable within a priority. Partial
// results are always returned; per-source failures never abort the run.
func (e *Extractor) Run(ctx context.Context, topic string, selected []schema.SelectedSource) []schema.SourceProcessingResult {
	ordered := make([]schema.SelectedSource, len(selected))
	copy(ordered, selected)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Rank() < ordered[j].Priority.Rank()
	})

	e.log().Info("Extraction phase starting", "sources", len(ordered), "mode", e.mode(), "topic", topic)

	var results []schema.SourceProcessingResult
	if e.mode() == ModeBatch {
		results = e.runBatches(ctx, topic, ordered)
	} else {
		results = e.runSequential(ctx, topic, ordered)
	}

	succeeded := 0
	for _, r := range results {
		if r.FoundCoverage {
			succeeded++
		}
	}
	e.log().Info("Extraction phase complete", "with_coverage", succeeded, "total", len(results))
	return results
}

func (e *Extractor) mode() string {
	if e.Mode == ModeBatch {
		return ModeBatch
	}
	return ModeSequential
}

// runSequential processes every source one at a time over a single shared
// session. The automation backend is stateful per page, so this is the
// preferred driver.
func (e *Extractor) runSequential(ctx context.Context, topic string, sources []schema.SelectedSource) []schema.SourceProcessingResult {
	session, err := e.Sessions(ctx)
	if err != nil {
		return e.failAll(sources, &browser.ToolError{Tool: "session_open", Err: err})
	}
	defer session.Close(ctx)

	results := make([]schema.SourceProcessingResult, 0, len(sources))
	for _, src := range sources {
		results = append(results, e.processSource(ctx, session, topic, src))
	}
	return results
}

// runBatches processes sources in fixed-size batches. Within a batch each
// source gets its own isolated session and runs concurrently; results are
// re-paired with sources by position, not completion order. Batches are
// separated by a cooldown so the automation backend is not hammered.
func (e *Extractor) runBatches(ctx context.Context, topic string, sources []schema.SelectedSource) []schema.SourceProcessingResult {
	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	cooldown := e.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	all := make([]schema.SourceProcessingResult, 0, len(sources))
	for start := 0; start < len(sources); start += batchSize {
		end := start + batchSize
		if end > len(sources) {
			end = len(sources)
		}
		batch := sources[start:end]
		e.log().Info("Processing batch", "batch", start/batchSize+1, "size", len(batch))

		results := make([]schema.SourceProcessingResult, len(batch))
		var wg sync.WaitGroup
		for i, src := range batch {
			wg.Add(1)
			go func(i int, src schema.SelectedSource) {
				defer wg.Done()
				session, err := e.Sessions(ctx)
				if err != nil {
					results[i] = e.errorResult(src, &browser.ToolError{Tool: "session_open", Err: err})
					return
				}
				defer session.Close(ctx)
				results[i] = e.processSource(ctx, session, topic, src)
			}(i, src)
		}
		wg.Wait()
		all = append(all, results...)

		if end < len(sources) {
			select {
			case <-time.After(cooldown):
			case <-ctx.Done():
				return append(all, e.failAll(sources[end:], &browser.ToolError{Tool: "session_open", Err: ctx.Err()})...)
			}
		}
	}
	return all
}

// processSource handles one source end to end. It classifies every failure
// into the result's error field and never panics past this boundary.
func (e *Extractor) processSource(ctx context.Context, session browser.Session, topic string, src schema.SelectedSource) (result schema.SourceProcessingResult) {
	start := time.Now()
	logger := e.log().With("source", src.MediaName, "country", src.Country)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while processing source", "panic", fmt.Sprintf("%v", r))
			result = e.errorResult(src, fmt.Errorf("panic: %v", r))
		}
	}()

	logger.Info("Processing source", "url", src.URL, "priority", string(src.Priority))

	a := agent.New(e.Provider, e.Model, session.Tools(), extractionFormat)
	resp, err := a.Invoke(ctx, buildExtractionPrompt(src.URL, topic))
	if err != nil {
		e.logFailure(logger, err, time.Since(start))
		return e.errorResult(src, err)
	}

	logger.Info("Agent call finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"has_structured_response", resp.Structured != nil,
		"tool_rounds", resp.ToolRounds,
		"tokens", resp.TokensUsed)

	if resp.Structured == nil {
		err := &MissingStructuredOutputError{Content: truncate(resp.Content, 500)}
		logger.Error("Missing structured response", "content", err.Content)
		return e.errorResult(src, err)
	}

	var out extractionOutput
	if err := json.Unmarshal(resp.Structured, &out); err != nil {
		vErr := &schema.ValidationError{Field: "structured_response", Reason: err.Error()}
		e.logFailure(logger, vErr, time.Since(start))
		return e.errorResult(src, vErr)
	}

	if !out.FoundCoverage {
		logger.Info("No coverage found", "url", src.URL)
		return schema.SourceProcessingResult{
			Country:       src.Country,
			MediaName:     src.MediaName,
			HomepageURL:   src.URL,
			FoundCoverage: false,
		}
	}

	article := out.ArticleExtraction
	if err := article.Validate(); err != nil {
		e.logFailure(logger, err, time.Since(start))
		return e.errorResult(src, err)
	}

	if e.Responses != nil {
		e.Responses.AppendResponse(src.MediaName, map[string]any{
			"structured_response": json.RawMessage(resp.Structured),
			"tool_rounds":         resp.ToolRounds,
			"tokens":              resp.TokensUsed,
		})
	}

	logger.Info("Found coverage", "headline", article.Headline, "duration_ms", time.Since(start).Milliseconds())
	return schema.SourceProcessingResult{
		Country:       src.Country,
		MediaName:     src.MediaName,
		HomepageURL:   src.URL,
		FoundCoverage: true,
		Article:       &article,
	}
}

// extractionOutput is the agent's declared shape: a coverage flag plus the
// article fields when coverage was found.
type extractionOutput struct {
	FoundCoverage bool `json:"found_coverage"`
	schema.ArticleExtraction
}

// logFailure logs by error class: transient tool errors at Warn without
// further context, everything else at Error with the full chain.
func (e *Extractor) logFailure(logger *slog.Logger, err error, elapsed time.Duration) {
	kind := Classify(err)
	switch kind {
	case KindTool:
		logger.Warn("Tool error", "error", truncate(err.Error(), 200), "duration_ms", elapsed.Milliseconds())
	case KindValidation:
		logger.Error("Validation failed", "error", err.Error(), "duration_ms", elapsed.Milliseconds())
	default:
		logger.Error("Unexpected error", "error_kind", string(kind), "error", err.Error(), "duration_ms", elapsed.Milliseconds())
	}
}

func (e *Extractor) errorResult(src schema.SelectedSource, err error) schema.SourceProcessingResult {
	return schema.SourceProcessingResult{
		Country:       src.Country,
		MediaName:     src.MediaName,
		HomepageURL:   src.URL,
		FoundCoverage: false,
		Error:         errorString(err),
	}
}

func (e *Extractor) failAll(sources []schema.SelectedSource, err error) []schema.SourceProcessingResult {
	results := make([]schema.SourceProcessingResult, len(sources))
	for i, src := range sources {
		results[i] = e.errorResult(src, err)
	}
	return results
}
