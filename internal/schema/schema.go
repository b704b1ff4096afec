// Package schema defines the structured records exchanged between pipeline
// phases and the validation rules agents' output must satisfy.
package schema

import (
	"fmt"
	"net/url"
	"strings"
)

// Validation limits for agent-produced records.
const (
	MinPlanningSources = 1
	MaxPlanningSources = 15
	MinHeadlineLength  = 5
	MaxHeadlineLength  = 500
	MinViewpointLength = 20
	MaxViewpointLength = 1000
	MinViewpointWords  = 10
)

// placeholders are junk values models emit instead of admitting they found nothing.
var placeholders = map[string]bool{
	"n/a":       true,
	"none":      true,
	"undefined": true,
	"null":      true,
	"":          true,
}

// ValidationError reports a single field constraint violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Priority is the coarse relevance tag assigned during planning.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for extraction scheduling: high before medium
// before low. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// NewsSource is one entry in the static catalog. Identity is (Country, MediaName).
type NewsSource struct {
	Country   string `json:"country"`
	MediaName string `json:"media_name"`
	URL       string `json:"url"`
}

// SelectedSource is a catalog entry chosen by the planning agent.
type SelectedSource struct {
	Country   string   `json:"country"`
	MediaName string   `json:"media_name"`
	URL       string   `json:"url"`
	Priority  Priority `json:"priority,omitempty"`
}

// PlanningOutput is the planning agent's declared output.
type PlanningOutput struct {
	Topic           string           `json:"topic"`
	SelectedSources []SelectedSource `json:"selected_sources"`
	Rationale       string           `json:"rationale"`
}

// Validate checks the planning cardinality and per-source fields.
func (p *PlanningOutput) Validate() error {
	n := len(p.SelectedSources)
	if n < MinPlanningSources || n > MaxPlanningSources {
		return &ValidationError{
			Field:  "selected_sources",
			Reason: fmt.Sprintf("must select between %d and %d sources, got %d", MinPlanningSources, MaxPlanningSources, n),
		}
	}
	if strings.TrimSpace(p.Rationale) == "" {
		return &ValidationError{Field: "rationale", Reason: "cannot be empty"}
	}
	for i, s := range p.SelectedSources {
		if strings.TrimSpace(s.MediaName) == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("selected_sources[%d].media_name", i),
				Reason: "cannot be empty",
			}
		}
		if err := ValidateHTTPURL(s.URL); err != nil {
			return &ValidationError{
				Field:  fmt.Sprintf("selected_sources[%d].url", i),
				Reason: err.Error(),
			}
		}
	}
	return nil
}

// ArticleExtraction is the extraction agent's declared output for one article.
type ArticleExtraction struct {
	Headline        string `json:"headline"`
	ArticleURL      string `json:"article_url"`
	CoreViewpoint   string `json:"core_viewpoint"`
	PublicationDate string `json:"publication_date,omitempty"`
}

// Validate checks all required fields. A failure on any field invalidates
// the whole record; there is no partial acceptance.
func (a *ArticleExtraction) Validate() error {
	headline := strings.TrimSpace(a.Headline)
	if err := checkText("headline", headline, MinHeadlineLength, MaxHeadlineLength); err != nil {
		return err
	}
	if err := ValidateHTTPURL(a.ArticleURL); err != nil {
		return &ValidationError{Field: "article_url", Reason: err.Error()}
	}
	viewpoint := strings.TrimSpace(a.CoreViewpoint)
	if err := checkText("core_viewpoint", viewpoint, MinViewpointLength, MaxViewpointLength); err != nil {
		return err
	}
	if words := len(strings.Fields(viewpoint)); words < MinViewpointWords {
		return &ValidationError{
			Field:  "core_viewpoint",
			Reason: fmt.Sprintf("too short (%d words), need at least %d for meaningful analysis", words, MinViewpointWords),
		}
	}
	return nil
}

func checkText(field, v string, minLen, maxLen int) error {
	if v == "" {
		return &ValidationError{Field: field, Reason: "cannot be empty or whitespace"}
	}
	if placeholders[strings.ToLower(v)] {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("cannot be placeholder text %q", v)}
	}
	if n := len([]rune(v)); n < minLen || n > maxLen {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("length %d outside allowed range [%d, %d]", n, minLen, maxLen),
		}
	}
	return nil
}

// ValidateHTTPURL requires an absolute http(s) URL with a host.
// Relative URLs are always rejected.
func ValidateHTTPURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// SourceProcessingResult is the outcome of processing one source. Created
// once per source per run and never mutated afterwards.
type SourceProcessingResult struct {
	Country       string             `json:"country"`
	MediaName     string             `json:"media_name"`
	HomepageURL   string             `json:"homepage_url"`
	FoundCoverage bool               `json:"found_coverage"`
	Article       *ArticleExtraction `json:"article,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// Validate enforces the coverage invariant: coverage implies an article and
// no error; no coverage implies no article. An error string without coverage
// is allowed — "failed" and "no coverage" are distinct states.
func (r *SourceProcessingResult) Validate() error {
	if r.FoundCoverage {
		if r.Article == nil {
			return &ValidationError{Field: "article", Reason: "found_coverage=true requires an article"}
		}
		if r.Error != "" {
			return &ValidationError{Field: "error", Reason: "found_coverage=true forbids an error"}
		}
		return nil
	}
	if r.Article != nil {
		return &ValidationError{Field: "article", Reason: "found_coverage=false forbids an article"}
	}
	return nil
}

// MediaComparison is one row of the final comparison table.
type MediaComparison struct {
	Country       string `json:"country"`
	MediaName     string `json:"media_name"`
	ArticleTitle  string `json:"article_title"`
	ArticleURL    string `json:"article_url"`
	CoreViewpoint string `json:"core_viewpoint"`
	Sentiment     string `json:"sentiment,omitempty"`
}

// AggregationOutput is the pipeline's final structured result.
type AggregationOutput struct {
	Topic               string            `json:"topic"`
	TotalSourcesChecked int               `json:"total_sources_checked"`
	SourcesWithCoverage int               `json:"sources_with_coverage"`
	ComparisonTable     []MediaComparison `json:"comparison_table"`
	Summary             string            `json:"summary"`
	ProcessingTimestamp string            `json:"processing_timestamp"`
}

// Validate checks count consistency. An empty comparison table is valid;
// zero coverage is a legitimate result, not an error.
func (o *AggregationOutput) Validate() error {
	if o.TotalSourcesChecked < 0 {
		return &ValidationError{Field: "total_sources_checked", Reason: "cannot be negative"}
	}
	if o.SourcesWithCoverage < 0 {
		return &ValidationError{Field: "sources_with_coverage", Reason: "cannot be negative"}
	}
	if o.SourcesWithCoverage > o.TotalSourcesChecked {
		return &ValidationError{
			Field:  "sources_with_coverage",
			Reason: fmt.Sprintf("%d exceeds total_sources_checked %d", o.SourcesWithCoverage, o.TotalSourcesChecked),
		}
	}
	if strings.TrimSpace(o.Summary) == "" {
		return &ValidationError{Field: "summary", Reason: "cannot be empty"}
	}
	return nil
}
