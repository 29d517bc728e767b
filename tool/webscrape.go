package tool

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// WebScrape fetches a web page and returns its readable text content.
// Script and style nodes are dropped before extraction, and the
// extracted text is run through a sanitizer so hostile pages cannot
// smuggle markup into the session history.
type WebScrape struct {
	client    *http.Client
	sanitizer *bluemonday.Policy
	maxChars  int
}

// WebScrapeOption configures the WebScrape tool.
type WebScrapeOption func(*WebScrape)

// WithScrapeClient sets a custom HTTP client.
func WithScrapeClient(client *http.Client) WebScrapeOption {
	return func(w *WebScrape) { w.client = client }
}

// WithScrapeMaxChars caps the extracted text length.
func WithScrapeMaxChars(n int) WebScrapeOption {
	return func(w *WebScrape) {
		if n > 0 {
			w.maxChars = n
		}
	}
}

// NewWebScrape creates a new WebScrape tool.
func NewWebScrape(opts ...WebScrapeOption) *WebScrape {
	w := &WebScrape{
		client:    http.DefaultClient,
		sanitizer: bluemonday.UGCPolicy(),
		maxChars:  8000,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the name of the tool.
func (w *WebScrape) Name() string {
	return "webscrape"
}

// Description returns the description of the tool.
func (w *WebScrape) Description() string {
	return "Fetches a web page and returns its title and readable text. " +
		"Arguments: {\"url\": \"https://...\"}."
}

// Call fetches and extracts the page.
func (w *WebScrape) Call(ctx context.Context, args map[string]any) (string, error) {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return "", fmt.Errorf("webscrape: missing url argument")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("webscrape: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "critiq-agent/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webscrape: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("webscrape: %s returned status %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("webscrape: failed to parse page: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var sb strings.Builder
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	})

	body := w.sanitizer.Sanitize(sb.String())
	body = strings.TrimSpace(body)
	if runes := []rune(body); len(runes) > w.maxChars {
		body = string(runes[:w.maxChars]) + "…"
	}

	if title == "" && body == "" {
		return "", fmt.Errorf("webscrape: no readable content at %s", rawURL)
	}

	return fmt.Sprintf("Title: %s\n\n%s", title, body), nil
}
