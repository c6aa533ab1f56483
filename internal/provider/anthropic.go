package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

const (
	DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest
	defaultMaxTokens      = 1024

	// sessionOpener stands in for the user turn the Messages API requires
	// first when the history has none, e.g. a persona-only opening turn.
	sessionOpener = "Begin."
)

// AnthropicClient uses the Anthropic Messages API. The API key falls back
// to ANTHROPIC_API_KEY when Config.APIKey is empty.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropic(cfg Config) *AnthropicClient {
	opts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), model: model}
}

func (c *AnthropicClient) Name() string { return Anthropic }

func (c *AnthropicClient) Generate(ctx context.Context, history []memory.Message, descs []tools.Descriptor, opts Options) (Turn, error) {
	system, msgs := anthropicMessages(history)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		System:    system,
		Tools:     anthropicTools(descs),
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	var reqOpts []option.RequestOption
	for k, v := range opts.Extra {
		reqOpts = append(reqOpts, option.WithJSONSet(k, v))
	}

	resp, err := c.client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Turn{}, classify(Anthropic, apiErr.StatusCode, err)
		}
		return Turn{}, classify(Anthropic, 0, err)
	}
	if string(resp.StopReason) == "refusal" {
		return Turn{}, refusedError(Anthropic, "stop_reason=refusal")
	}

	var (
		texts []string
		calls []memory.ToolCall
	)
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text != "" {
				texts = append(texts, v.Text)
			}
		case anthropic.ToolUseBlock:
			calls = append(calls, memory.ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: memory.NormalizeArguments([]byte(v.JSON.Input.Raw())),
			})
		}
	}
	return Turn{Content: strings.Join(texts, "\n"), ToolCalls: ensureCallIDs(calls)}, nil
}

// anthropicMessages splits system prompts out and folds consecutive tool
// results into a single user message, keeping each tool_result adjacent to
// the assistant tool_use that requested it. The result always opens with a
// user turn.
func anthropicMessages(history []memory.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var (
		system  []anthropic.TextBlockParam
		msgs    []anthropic.MessageParam
		results []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(results) > 0 {
			msgs = append(msgs, anthropic.NewUserMessage(results...))
			results = nil
		}
	}
	for _, m := range history {
		switch m.Role {
		case memory.RoleSystem:
			if m.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case memory.RoleTool:
			results = append(results, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case memory.RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    tc.ID,
					Name:  tc.Name,
					Input: toolInput(tc.Arguments),
				}})
			}
			if len(blocks) > 0 {
				msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			flush()
			if m.Content != "" {
				msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}
	}
	flush()
	if len(msgs) == 0 || msgs[0].Role != anthropic.MessageParamRoleUser {
		opener := anthropic.NewUserMessage(anthropic.NewTextBlock(sessionOpener))
		msgs = append([]anthropic.MessageParam{opener}, msgs...)
	}
	return system, msgs
}

// toolInput returns args when it is a JSON object, else an empty object.
func toolInput(args json.RawMessage) any {
	if trimmed := bytes.TrimSpace(args); len(trimmed) > 0 && trimmed[0] == '{' {
		return json.RawMessage(trimmed)
	}
	return map[string]any{}
}

func anthropicTools(descs []tools.Descriptor) []anthropic.ToolUnionParam {
	if len(descs) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(descs))
	for _, d := range descs {
		schema := d.ParametersMap()
		input := anthropic.ToolInputSchemaParam{Properties: schema["properties"]}
		if req, ok := schema["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					input.Required = append(input.Required, s)
				}
			}
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: input,
			},
		})
	}
	return out
}
