package provider

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient uses the chat completions API; it also serves any
// OpenAI-compatible server via Config.BaseURL.
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAI(cfg Config) *OpenAIClient {
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
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model}
}

func (c *OpenAIClient) Name() string { return OpenAI }

func (c *OpenAIClient) Generate(ctx context.Context, history []memory.Message, descs []tools.Descriptor, opts Options) (Turn, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: openaiMessages(history),
		Tools:    openaiTools(descs),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	var reqOpts []option.RequestOption
	for k, v := range opts.Extra {
		reqOpts = append(reqOpts, option.WithJSONSet(k, v))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Turn{}, classify(OpenAI, apiErr.StatusCode, err)
		}
		return Turn{}, classify(OpenAI, 0, err)
	}
	if len(resp.Choices) == 0 {
		return Turn{}, protocolError(OpenAI, errors.New("response has no choices"))
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return Turn{}, refusedError(OpenAI, choice.Message.Refusal)
	}
	if choice.FinishReason == "content_filter" {
		return Turn{}, refusedError(OpenAI, "finish_reason=content_filter")
	}

	turn := Turn{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, memory.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: memory.NormalizeArguments([]byte(tc.Function.Arguments)),
		})
	}
	turn.ToolCalls = ensureCallIDs(turn.ToolCalls)
	return turn, nil
}

func openaiMessages(history []memory.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case memory.RoleSystem:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(m.Content)},
				},
			})
		case memory.RoleAssistant:
			msg := &openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)}
			}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: msg})
		case memory.RoleTool:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					Content:    openai.ChatCompletionToolMessageParamContentUnion{OfString: openai.String(m.Content)},
					ToolCallID: m.ToolCallID,
				},
			})
		default:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(m.Content)},
				},
			})
		}
	}
	return out
}

func openaiTools(descs []tools.Descriptor) []openai.ChatCompletionToolParam {
	if len(descs) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(descs))
	for _, d := range descs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  shared.FunctionParameters(d.ParametersMap()),
			},
		})
	}
	return out
}
