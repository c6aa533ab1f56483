package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

// Backend names accepted by New.
const (
	Ollama    = "ollama"
	Anthropic = "anthropic"
	OpenAI    = "openai"
)

// Client produces the next assistant turn for a conversation.
type Client interface {
	Name() string
	Generate(ctx context.Context, history []memory.Message, descs []tools.Descriptor, opts Options) (Turn, error)
}

// Turn is one assistant response: either final text, or tool calls with
// optional partial text.
type Turn struct {
	Content   string
	ToolCalls []memory.ToolCall
}

// Final reports whether the turn ends the exchange.
func (t Turn) Final() bool { return len(t.ToolCalls) == 0 }

// Options are generation parameters passed through unchanged every turn.
// Zero values mean "backend default".
type Options struct {
	NumCtx      int
	Temperature *float64
	MaxTokens   int
	Extra       map[string]any
}

// Config selects and configures a backend.
type Config struct {
	Name       string
	Model      string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	MaxRetries int
}

// New builds the backend named by cfg.Name.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", Ollama:
		return NewOllama(cfg)
	case Anthropic:
		return NewAnthropic(cfg), nil
	case OpenAI:
		return NewOpenAI(cfg), nil
	}
	return nil, fmt.Errorf("provider: unknown backend %q", cfg.Name)
}

// ensureCallIDs fills in missing ids and replaces duplicates so every call
// in a turn is addressable.
func ensureCallIDs(calls []memory.ToolCall) []memory.ToolCall {
	seen := make(map[string]struct{}, len(calls))
	for i := range calls {
		if _, dup := seen[calls[i].ID]; calls[i].ID == "" || dup {
			calls[i].ID = "call_" + uuid.NewString()
		}
		seen[calls[i].ID] = struct{}{}
	}
	return calls
}
