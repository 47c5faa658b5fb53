package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// GroqProviderName is the name reported by GroqClient.
	GroqProviderName = "groq"

	defaultGroqBaseURL     = "https://api.groq.com/openai/v1"
	chatCompletionEndpoint = "/chat/completions"
)

// GroqClient calls an OpenAI-compatible chat completions endpoint (Groq by default).
type GroqClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGroqClient creates a Groq client bound to model. An empty apiKey yields an unconfigured client.
func NewGroqClient(apiKey, baseURL, model string, timeout time.Duration) *GroqClient {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GroqClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *GroqClient) Name() string { return GroqProviderName }

func (c *GroqClient) Configured() bool { return c.apiKey != "" && c.model != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate sends prompt as a single user message. An empty model uses the client's default.
func (c *GroqClient) Generate(ctx context.Context, model, prompt string, params GenerationParams) (string, error) {
	if !c.Configured() {
		return "", &ProviderError{Provider: GroqProviderName, Kind: KindMissingConfig, Message: "GROQ_API_KEY is not configured"}
	}
	if model == "" {
		model = c.model
	}

	bodyJSON, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionEndpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create groq request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: GroqProviderName, Kind: classifyText(err.Error()), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet := readSnippet(resp.Body, 2048)
		msg := snippet
		var errResp openAIErrorResponse
		if json.Unmarshal([]byte(snippet), &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return "", &ProviderError{
			Provider:   GroqProviderName,
			Kind:       classifyStatus(resp.StatusCode, snippet),
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ProviderError{Provider: GroqProviderName, Kind: KindUnknown, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return "", &ProviderError{Provider: GroqProviderName, Kind: KindUnknown, StatusCode: resp.StatusCode, Err: errors.New("empty choices")}
	}
	if out.Choices[0].FinishReason == "content_filter" {
		return "", &ProviderError{Provider: GroqProviderName, Kind: KindSafety, StatusCode: resp.StatusCode, Message: "response blocked by content filter"}
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", &ProviderError{Provider: GroqProviderName, Kind: KindUnknown, StatusCode: resp.StatusCode, Message: "empty completion"}
	}
	return text, nil
}
