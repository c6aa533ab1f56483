package tools

import "net/http"

// BuiltinOptions configures the built-in tool set.
type BuiltinOptions struct {
	Switcher  CameraSwitcher
	Client    *http.Client
	SearchURL string
	MaxRunes  int
}

// Builtins returns the director's tool set: camera switching, calculator,
// web search and web scraping.
func Builtins(opts BuiltinOptions) []ToolDefinition {
	sw := opts.Switcher
	if sw == nil {
		sw = &LogSwitcher{}
	}
	searcher := &Searcher{BaseURL: opts.SearchURL, Client: opts.Client}
	scraper := &Scraper{Client: opts.Client, MaxRunes: opts.MaxRunes}
	return []ToolDefinition{
		CameraTool(sw),
		CalculatorDefinition,
		searcher.Definition(),
		scraper.Definition(),
	}
}

// DefaultRegistry builds a Registry of the built-in tools.
func DefaultRegistry(opts BuiltinOptions) (*Registry, error) {
	return NewRegistry(Builtins(opts)...)
}
