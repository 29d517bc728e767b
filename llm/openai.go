package llm

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyResponse is returned when the API responds with no choices.
var ErrEmptyResponse = errors.New("no response from model")

// OpenAI is an llms.Model implementation backed by any OpenAI-compatible
// chat completion endpoint (OpenAI itself, or a local Ollama/vLLM server
// exposing the compatible API).
type OpenAI struct {
	client *openai.Client
	model  string
}

var _ llms.Model = (*OpenAI)(nil)

type openaiOptions struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// OpenAIOption configures the OpenAI model client.
type OpenAIOption func(*openaiOptions)

// WithAPIKey sets the API key. Defaults to the OPENAI_API_KEY environment
// variable.
func WithAPIKey(key string) OpenAIOption {
	return func(o *openaiOptions) { o.apiKey = key }
}

// WithModel sets the model name used for completions.
func WithModel(model string) OpenAIOption {
	return func(o *openaiOptions) { o.model = model }
}

// WithBaseURL points the client at a non-default endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(o *openaiOptions) { o.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(o *openaiOptions) { o.httpClient = client }
}

// NewOpenAI creates a new OpenAI-compatible chat model.
func NewOpenAI(opts ...OpenAIOption) (*OpenAI, error) {
	options := &openaiOptions{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		model:  openai.GPT4oMini,
	}
	if base := os.Getenv("OPENAI_API_BASE"); base != "" {
		options.baseURL = base
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}

	cfg := openai.DefaultConfig(options.apiKey)
	if options.baseURL != "" {
		cfg.BaseURL = options.baseURL
	}
	if options.httpClient != nil {
		cfg.HTTPClient = options.httpClient
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  options.model,
	}, nil
}

// Call generates a response for a single text prompt.
func (o *OpenAI) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)
}

// GenerateContent implements the llms.Model interface.
func (o *OpenAI) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := &llms.CallOptions{}
	for _, opt := range options {
		opt(opts)
	}

	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Tools:       convertTools(opts.Tools),
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		choices = append(choices, choice)
	}

	return &llms.ContentResponse{Choices: choices}, nil
}

func convertMessages(messages []llms.MessageContent) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		m := openai.ChatCompletionMessage{Role: convertRole(msg.Role)}

		var text strings.Builder
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				text.WriteString(p.Text)
			case llms.ToolCall:
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   p.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Arguments,
					},
				})
			case llms.ToolCallResponse:
				m.Role = openai.ChatMessageRoleTool
				m.ToolCallID = p.ToolCallID
				m.Name = p.Name
				text.WriteString(p.Content)
			}
		}
		m.Content = text.String()

		converted = append(converted, m)
	}

	return converted
}

func convertRole(role llms.ChatMessageType) string {
	switch role {
	case llms.ChatMessageTypeAI:
		return openai.ChatMessageRoleAssistant
	case llms.ChatMessageTypeSystem:
		return openai.ChatMessageRoleSystem
	case llms.ChatMessageTypeTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}

func convertTools(tools []llms.Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}

	converted := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		converted = append(converted, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return converted
}
