package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-2.5-flash"

// GoogleProvider implements Provider for the Gemini API.
type GoogleProvider struct {
	client *genai.Client
	model  string
}

// GoogleOption configures the Gemini client.
type GoogleOption func(*genai.ClientConfig)

// WithGoogleBaseURL points the client at a different API host.
func WithGoogleBaseURL(url string) GoogleOption {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
	}
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(c *genai.ClientConfig) {
		c.HTTPClient = client
	}
}

// NewGoogleProvider creates a Gemini provider. model may be empty.
func NewGoogleProvider(ctx context.Context, apiKey, model string, opts ...GoogleOption) (*GoogleProvider, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = defaultGoogleModel
	}
	return &GoogleProvider{client: client, model: model}, nil
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens(req)),
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, buildGoogleContents(req.Messages), config)
	if err != nil {
		if status, ok := googleStatus(err); ok {
			return CompletionResponse{}, classifyStatus("google", status, err)
		}
		return CompletionResponse{}, &ErrProviderUnavailable{Provider: "google", Err: err}
	}

	text := result.Text()
	if text == "" {
		return CompletionResponse{}, &ErrInvalidResponse{Err: fmt.Errorf("empty gemini response")}
	}
	resp := CompletionResponse{Content: text, Model: p.model}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

// ModelID returns the configured model.
func (p *GoogleProvider) ModelID() string { return p.model }

func buildGoogleContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, len(msgs))
	for i, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out[i] = &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}}
	}
	return out
}

func googleStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code, true
	}
	return 0, false
}
