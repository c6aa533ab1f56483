package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "qwen2.5:7b"
)

// OllamaClient talks to an Ollama server's /api/chat endpoint.
type OllamaClient struct {
	client *api.Client
	model  string
}

// authTransport adds a Bearer token for Ollama servers behind a proxy.
type authTransport struct {
	Token string
	Base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.Token)
	return t.Base.RoundTrip(req)
}

func NewOllama(cfg Config) (*OllamaClient, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOllamaURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("provider: ollama url %q: %w", base, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.APIKey != "" {
		rt := httpClient.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		httpClient = &http.Client{
			Transport: &authTransport{Token: cfg.APIKey, Base: rt},
			Timeout:   httpClient.Timeout,
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaClient{client: api.NewClient(u, httpClient), model: model}, nil
}

func (c *OllamaClient) Name() string { return Ollama }

func (c *OllamaClient) Generate(ctx context.Context, history []memory.Message, descs []tools.Descriptor, opts Options) (Turn, error) {
	toolDefs, err := ollamaTools(descs)
	if err != nil {
		return Turn{}, protocolError(Ollama, err)
	}
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: ollamaMessages(history),
		Stream:   &stream,
		Tools:    toolDefs,
		Options:  ollamaOptions(opts),
	}

	var (
		content strings.Builder
		calls   []memory.ToolCall
	)
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		for _, tc := range resp.Message.ToolCalls {
			args, err := json.Marshal(tc.Function.Arguments)
			if err != nil {
				return fmt.Errorf("tool call %s arguments: %w", tc.Function.Name, err)
			}
			calls = append(calls, memory.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: memory.NormalizeArguments(args),
			})
		}
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return Turn{}, classify(Ollama, statusErr.StatusCode, err)
		}
		return Turn{}, classify(Ollama, 0, err)
	}

	return Turn{
		Content:   strings.TrimSpace(stripThinkBlocks(content.String())),
		ToolCalls: ensureCallIDs(calls),
	}, nil
}

func ollamaOptions(opts Options) map[string]any {
	m := make(map[string]any, len(opts.Extra)+3)
	for k, v := range opts.Extra {
		m[k] = v
	}
	if opts.NumCtx > 0 {
		m["num_ctx"] = opts.NumCtx
	}
	if opts.Temperature != nil {
		m["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		m["num_predict"] = opts.MaxTokens
	}
	return m
}

func ollamaMessages(history []memory.Message) []api.Message {
	out := make([]api.Message, 0, len(history))
	for _, m := range history {
		msg := api.Message{Role: string(m.Role), Content: m.Content}
		if m.Role == memory.RoleTool {
			msg.ToolName = m.ToolName
			msg.ToolCallID = m.ToolCallID
		}
		for _, tc := range m.ToolCalls {
			call := api.ToolCall{ID: tc.ID}
			call.Function.Name = tc.Name
			var args api.ToolCallFunctionArguments
			if err := json.Unmarshal(tc.Arguments, &args); err == nil {
				call.Function.Arguments = args
			}
			msg.ToolCalls = append(msg.ToolCalls, call)
		}
		out = append(out, msg)
	}
	return out
}

// ollamaTools converts descriptors through their JSON form, which is the
// shape api.Tool decodes.
func ollamaTools(descs []tools.Descriptor) ([]api.Tool, error) {
	if len(descs) == 0 {
		return nil, nil
	}
	out := make([]api.Tool, 0, len(descs))
	for _, d := range descs {
		raw, err := json.Marshal(map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.ParametersJSON(),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", d.Name, err)
		}
		var tool api.Tool
		if err := json.Unmarshal(raw, &tool); err != nil {
			return nil, fmt.Errorf("tool %s: %w", d.Name, err)
		}
		out = append(out, tool)
	}
	return out, nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinkBlocks removes <think>...</think> reasoning emitted by some models.
func stripThinkBlocks(content string) string {
	return thinkBlock.ReplaceAllString(content, "")
}
