// Package browser provides the automation sessions whose tools the
// extraction agent drives: navigate, read the page, list links, click.
//
// Two backends exist. The chrome backend runs a real headless browser via
// chromedp and handles script-rendered pages. The static backend fetches
// over plain HTTP with colly and is the right choice where no Chrome is
// installed.
//
// A session owns a single page. It must never be shared by concurrent
// extractions; doing so would interleave navigations and corrupt state.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/thinkscotty/medialens/internal/agent"
)

// Session is a scoped automation resource. Tools returns the browser
// actions bound to this session's page; Close releases the backend.
type Session interface {
	Tools() []agent.Tool
	Close(ctx context.Context) error
}

// Factory opens a fresh session. The batch extraction driver uses one
// factory call per batch; the sequential driver uses a single session.
type Factory func(ctx context.Context) (Session, error)

// NewFactory returns a Factory for the named backend: "chrome" or "static".
func NewFactory(backend string, headless bool) (Factory, error) {
	switch backend {
	case "chrome":
		return func(ctx context.Context) (Session, error) {
			return NewChromeSession(ctx, headless)
		}, nil
	case "static":
		return func(ctx context.Context) (Session, error) {
			return NewStaticSession(), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown browser backend %q (want \"chrome\" or \"static\")", backend)
	}
}

// ToolError marks a failure inside a browser tool. The extraction step
// classifies these as transient and logs them without a stack dump.
type ToolError struct {
	Tool string
	URL  string
	Err  error
}

func (e *ToolError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("browser tool %s failed for %s: %v", e.Tool, e.URL, e.Err)
	}
	return fmt.Sprintf("browser tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// maxPageText caps the page text fed back to the model. Homepages routinely
// exceed context limits otherwise.
const maxPageText = 20000

// maxLinks caps the number of links reported by list_links.
const maxLinks = 150

func capText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// Link is one anchor collected from the current page.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

func formatLinks(links []Link) string {
	if len(links) == 0 {
		return "no links found on the current page"
	}
	var sb strings.Builder
	for _, l := range links {
		sb.WriteString(l.Text)
		sb.WriteString(" -> ")
		sb.WriteString(l.URL)
		sb.WriteString("\n")
	}
	return sb.String()
}
