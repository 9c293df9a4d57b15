package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicProvider implements Provider using the Anthropic SDK.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// AnthropicOption configures an AnthropicProvider.
type AnthropicOption func(*[]option.RequestOption, *string)

// WithAnthropicBaseURL points the client at a different API host.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(opts *[]option.RequestOption, _ *string) {
		*opts = append(*opts, option.WithBaseURL(url))
	}
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(opts *[]option.RequestOption, _ *string) {
		*opts = append(*opts, option.WithHTTPClient(client))
	}
}

// WithAnthropicModel sets the model used for completions.
func WithAnthropicModel(model string) AnthropicOption {
	return func(_ *[]option.RequestOption, m *string) {
		if model != "" {
			*m = model
		}
	}
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	model := defaultAnthropicModel
	for _, opt := range opts {
		opt(&reqOpts, &model)
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
	}
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens(req)),
		Messages:  buildAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return CompletionResponse{}, classifyStatus("anthropic", apiErr.StatusCode, err)
		}
		return CompletionResponse{}, &ErrProviderUnavailable{Provider: "anthropic", Err: err}
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return CompletionResponse{
				Content:      block.Text,
				Model:        string(msg.Model),
				InputTokens:  int(msg.Usage.InputTokens),
				OutputTokens: int(msg.Usage.OutputTokens),
			}, nil
		}
	}
	return CompletionResponse{}, &ErrInvalidResponse{Err: fmt.Errorf("no text content in anthropic response")}
}

// ModelID returns the configured model.
func (p *AnthropicProvider) ModelID() string { return p.model }

func buildAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(msgs))
	for i, m := range msgs {
		if m.Role == RoleAssistant {
			out[i] = anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content))
			continue
		}
		out[i] = anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content))
	}
	return out
}
