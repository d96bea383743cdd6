package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Compile-time interface check.
var _ Provider = (*OpenAI)(nil)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	openAIChatURL        = "https://api.openai.com/v1/chat/completions"
	defaultOpenAITimeout = 60 * time.Second
)

// OpenAI implements Provider using the OpenAI chat completions API.
type OpenAI struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string // configurable for testing
}

// NewOpenAI creates an OpenAI provider. model may be empty for the default.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: defaultOpenAITimeout},
		baseURL: openAIChatURL,
	}
}

func (o *OpenAI) Name() string { return "openai" }

// GenerateResponse sends the conversation to the chat completions API.
func (o *OpenAI) GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	reqBody, err := json.Marshal(openAIChatRequest{
		Model:     model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: request failed: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: openai: API error %d: %s", ErrGenerationFailed, resp.StatusCode, string(bodyBytes))
	}

	var apiResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: openai: decode response: %v", ErrGenerationFailed, err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai: empty choices", ErrGenerationFailed)
	}

	return &GenerateResponse{
		Content: apiResp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		},
	}, nil
}

type openAIChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
