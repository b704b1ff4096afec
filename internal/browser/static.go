package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/thinkscotty/medialens/internal/agent"
)

// StaticSession exposes the same tool set as ChromeSession but fetches
// pages over plain HTTP with colly. Script-rendered content is invisible
// to it; in exchange it needs no Chrome install and is deterministic
// enough for tests.
type StaticSession struct {
	mu         sync.Mutex
	userAgent  string
	timeout    time.Duration
	currentURL string
	pageTitle  string
	pageText   string
	links      []Link
}

// NewStaticSession creates a static fetcher session with an empty page.
func NewStaticSession() *StaticSession {
	return &StaticSession{
		userAgent: "medialens/1.0 (news coverage research; +https://github.com/thinkscotty/medialens)",
		timeout:   30 * time.Second,
	}
}

func (s *StaticSession) Close(ctx context.Context) error { return nil }

func (s *StaticSession) Tools() []agent.Tool {
	return []agent.Tool{
		{
			Def: agent.ToolDef("navigate", "Fetch a URL and make it the current page.",
				`{"type":"object","properties":{"url":{"type":"string","description":"Absolute http(s) URL to fetch"}},"required":["url"]}`),
			Run: s.navigate,
		},
		{
			Def: agent.ToolDef("read_page", "Read the text content of the current page.",
				`{"type":"object","properties":{}}`),
			Run: s.readPage,
		},
		{
			Def: agent.ToolDef("list_links", "List links on the current page as 'text -> url' lines.",
				`{"type":"object","properties":{}}`),
			Run: s.listLinks,
		},
		{
			Def: agent.ToolDef("click", "Follow the first link whose text contains the given text.",
				`{"type":"object","properties":{"link_text":{"type":"string","description":"Text of the link to follow"}},"required":["link_text"]}`),
			Run: s.click,
		},
	}
}

func (s *StaticSession) navigate(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", &ToolError{Tool: "navigate", Err: fmt.Errorf("bad arguments: %w", err)}
	}
	if err := s.fetch(ctx, in.URL); err != nil {
		return "", err
	}
	return fmt.Sprintf("fetched %s (%s)", in.URL, s.pageTitle), nil
}

func (s *StaticSession) readPage(ctx context.Context, _ json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentURL == "" {
		return "", &ToolError{Tool: "read_page", Err: fmt.Errorf("no page loaded, call navigate first")}
	}
	return capText(s.pageText, maxPageText), nil
}

func (s *StaticSession) listLinks(ctx context.Context, _ json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentURL == "" {
		return "", &ToolError{Tool: "list_links", Err: fmt.Errorf("no page loaded, call navigate first")}
	}
	return formatLinks(s.links), nil
}

func (s *StaticSession) click(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		LinkText string `json:"link_text"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", &ToolError{Tool: "click", Err: fmt.Errorf("bad arguments: %w", err)}
	}

	s.mu.Lock()
	target := ""
	needle := strings.ToLower(strings.TrimSpace(in.LinkText))
	for _, l := range s.links {
		if strings.Contains(strings.ToLower(l.Text), needle) {
			target = l.URL
			break
		}
	}
	s.mu.Unlock()

	if target == "" {
		return "", &ToolError{Tool: "click", URL: s.currentURL, Err: fmt.Errorf("no link matching %q on current page", in.LinkText)}
	}
	if err := s.fetch(ctx, target); err != nil {
		return "", err
	}
	return fmt.Sprintf("followed link to %s (%s)", target, s.pageTitle), nil
}

// fetch loads a URL and snapshots its title, text, and links into the
// session state.
func (s *StaticSession) fetch(ctx context.Context, pageURL string) error {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)

	var (
		title   string
		content strings.Builder
		links   []Link
	)

	c.OnHTML("html", func(e *colly.HTMLElement) {
		dom := e.DOM

		title = cleanText(dom.Find("title").First().Text())

		dom.Find("h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
			text := cleanText(sel.Text())
			if len(text) > 10 && len(text) < 300 {
				content.WriteString("HEADLINE: ")
				content.WriteString(text)
				content.WriteString("\n")
			}
		})

		dom.Find("p").Each(func(_ int, sel *goquery.Selection) {
			text := cleanText(sel.Text())
			if len(text) > 50 && len(text) < 2000 {
				content.WriteString(text)
				content.WriteString("\n")
			}
		})

		dom.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			abs := e.Request.AbsoluteURL(href)
			text := cleanText(sel.Text())
			if text == "" || !strings.HasPrefix(abs, "http") {
				return true
			}
			links = append(links, Link{Text: text, URL: abs})
			return len(links) < maxLinks
		})
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(pageURL); err != nil {
		return &ToolError{Tool: "navigate", URL: pageURL, Err: err}
	}
	c.Wait()

	if fetchErr != nil {
		return &ToolError{Tool: "navigate", URL: pageURL, Err: fetchErr}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentURL = pageURL
	s.pageTitle = title
	s.pageText = content.String()
	s.links = links
	return nil
}
