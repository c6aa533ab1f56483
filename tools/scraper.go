package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

type ScrapeInput struct {
	URL string `json:"url" jsonschema_description:"Absolute http(s) URL of the page to read."`
}

// Scraper fetches a web page and returns it as markdown.
type Scraper struct {
	Client    *http.Client
	UserAgent string
	MaxRunes  int
}

func (s *Scraper) Definition() ToolDefinition {
	return NewTool("scrape_website",
		"Fetch a web page and return its readable content as markdown. Long pages are truncated.",
		s.Scrape)
}

func (s *Scraper) Scrape(ctx context.Context, in ScrapeInput) (string, error) {
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", InvalidParams(fmt.Errorf("url must be an absolute http(s) URL, got %q", in.URL))
	}

	body, contentType, err := get(ctx, s.Client, u.String(), s.UserAgent)
	if err != nil {
		return "", err
	}

	text := string(body)
	if isHTML(contentType, body) {
		text, err = htmlToMarkdown(text)
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
	}

	limit := s.MaxRunes
	if limit <= 0 {
		limit = defaultRuneCap
	}
	return clampWithSentinel(strings.TrimSpace(text), limit), nil
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return strings.HasPrefix(http.DetectContentType(body), "text/html")
}

func htmlToMarkdown(html string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	return conv.ConvertString(html)
}
