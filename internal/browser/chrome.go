package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/thinkscotty/medialens/internal/agent"
)

// navTimeout bounds a single navigation or click inside Chrome. Slow news
// homepages are common; anything past this is reported as a tool error.
const navTimeout = 45 * time.Second

// ChromeSession drives one headless Chrome tab through chromedp.
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	currentURL  string
}

// NewChromeSession launches a browser and opens a single tab. The session
// must be closed to release the browser process.
func NewChromeSession(ctx context.Context, headless bool) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent("medialens/1.0 (news coverage research; +https://github.com/thinkscotty/medialens)"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser now so a missing Chrome binary surfaces as a
	// session-open failure, not a mid-extraction tool error.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	return &ChromeSession{ctx: tabCtx, cancel: cancel, allocCancel: allocCancel}, nil
}

func (s *ChromeSession) Close(ctx context.Context) error {
	s.cancel()
	s.allocCancel()
	return nil
}

func (s *ChromeSession) Tools() []agent.Tool {
	return []agent.Tool{
		{
			Def: agent.ToolDef("navigate", "Open a URL in the browser.",
				`{"type":"object","properties":{"url":{"type":"string","description":"Absolute http(s) URL to open"}},"required":["url"]}`),
			Run: s.navigate,
		},
		{
			Def: agent.ToolDef("read_page", "Read the visible text of the current page.",
				`{"type":"object","properties":{}}`),
			Run: s.readPage,
		},
		{
			Def: agent.ToolDef("list_links", "List links on the current page as 'text -> url' lines.",
				`{"type":"object","properties":{}}`),
			Run: s.listLinks,
		},
		{
			Def: agent.ToolDef("click", "Click the first element matching a CSS selector and wait for the page to settle.",
				`{"type":"object","properties":{"selector":{"type":"string","description":"CSS selector of the element to click"}},"required":["selector"]}`),
			Run: s.click,
		},
	}
}

func (s *ChromeSession) navigate(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", &ToolError{Tool: "navigate", Err: fmt.Errorf("bad arguments: %w", err)}
	}

	runCtx, cancel := context.WithTimeout(s.ctx, navTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(in.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", &ToolError{Tool: "navigate", URL: in.URL, Err: err}
	}
	s.currentURL = in.URL
	return fmt.Sprintf("navigated to %s", in.URL), nil
}

func (s *ChromeSession) readPage(ctx context.Context, _ json.RawMessage) (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, navTimeout)
	defer cancel()

	var text string
	if err := chromedp.Run(runCtx,
		chromedp.Text("body", &text, chromedp.ByQuery),
	); err != nil {
		return "", &ToolError{Tool: "read_page", URL: s.currentURL, Err: err}
	}
	return capText(cleanParagraphs(text), maxPageText), nil
}

func (s *ChromeSession) listLinks(ctx context.Context, _ json.RawMessage) (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, navTimeout)
	defer cancel()

	js := fmt.Sprintf(`Array.from(document.querySelectorAll('a[href]'))
		.map(a => ({text: a.innerText.trim(), url: a.href}))
		.filter(l => l.text.length > 0 && l.url.startsWith('http'))
		.slice(0, %d)`, maxLinks)

	var links []Link
	if err := chromedp.Run(runCtx, chromedp.Evaluate(js, &links)); err != nil {
		return "", &ToolError{Tool: "list_links", URL: s.currentURL, Err: err}
	}
	return formatLinks(links), nil
}

func (s *ChromeSession) click(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Selector string `json:"selector"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", &ToolError{Tool: "click", Err: fmt.Errorf("bad arguments: %w", err)}
	}

	runCtx, cancel := context.WithTimeout(s.ctx, navTimeout)
	defer cancel()

	var location string
	if err := chromedp.Run(runCtx,
		chromedp.Click(in.Selector, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
	); err != nil {
		return "", &ToolError{Tool: "click", URL: s.currentURL, Err: err}
	}
	s.currentURL = location
	return fmt.Sprintf("clicked %q, now at %s", in.Selector, location), nil
}

// cleanParagraphs collapses whitespace per line while keeping line breaks,
// which read_page relies on to stay skimmable for the model.
func cleanParagraphs(s string) string {
	var sb strings.Builder
	for _, line := range strings.Split(s, "\n") {
		cleaned := cleanText(line)
		if cleaned == "" {
			continue
		}
		sb.WriteString(cleaned)
		sb.WriteString("\n")
	}
	return sb.String()
}
