package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

const (
	DefaultSearchURL  = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
	maxMaxResults     = 10
)

type SearchInput struct {
	Query      string `json:"query" jsonschema_description:"Search terms."`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results to return (default 5, at most 10)."`
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Searcher queries DuckDuckGo's HTML endpoint.
type Searcher struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
}

func (s *Searcher) Definition() ToolDefinition {
	return NewTool("ddg_search",
		"Search the web with DuckDuckGo. Returns a JSON array of {title, url, snippet}.",
		s.Search)
}

func (s *Searcher) Search(ctx context.Context, in SearchInput) (string, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "", InvalidParams(errors.New("query is empty"))
	}
	limit := in.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	limit = min(limit, maxMaxResults)

	base := s.BaseURL
	if base == "" {
		base = DefaultSearchURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	body, _, err := get(ctx, s.Client, u.String(), s.UserAgent)
	if err != nil {
		return "", err
	}
	results, err := parseResults(bytes.NewReader(body), limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "no results", nil
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseResults extracts result links and snippets from a DuckDuckGo HTML page.
func parseResults(r io.Reader, limit int) ([]SearchResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	var results []SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) > limit {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				link := resolveResultLink(attr(n, "href"))
				if link != "" {
					results = append(results, SearchResult{Title: textContent(n), URL: link})
				}
				return
			case hasClass(n, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = textContent(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// resolveResultLink unwraps DuckDuckGo redirect links and drops ad links.
func resolveResultLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	return u.String()
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
