package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// GeminiProviderName is the name reported by GeminiClient.
	GeminiProviderName = "gemini"

	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeminiClient creates a Gemini client. An empty apiKey yields an unconfigured client.
func NewGeminiClient(apiKey, baseURL string, timeout time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GeminiClient) Name() string { return GeminiProviderName }

func (g *GeminiClient) Configured() bool { return g.apiKey != "" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn to model.
func (g *GeminiClient) Generate(ctx context.Context, model, prompt string, params GenerationParams) (string, error) {
	if !g.Configured() {
		return "", &ProviderError{Provider: GeminiProviderName, Kind: KindMissingConfig, Message: "GEMINI_API_KEY is not configured"}
	}
	if model == "" {
		return "", &ProviderError{Provider: GeminiProviderName, Kind: KindMissingConfig, Message: "model cannot be empty"}
	}

	var reqBody geminiRequest
	reqBody.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	reqBody.GenerationConfig.Temperature = params.Temperature
	reqBody.GenerationConfig.MaxOutputTokens = params.MaxOutputTokens

	bodyJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: GeminiProviderName, Kind: classifyText(err.Error()), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet := readSnippet(resp.Body, 2048)
		msg := snippet
		var errResp geminiErrorResponse
		if json.Unmarshal([]byte(snippet), &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Status + ": " + errResp.Error.Message
		}
		return "", &ProviderError{
			Provider:   GeminiProviderName,
			Kind:       classifyStatus(resp.StatusCode, snippet),
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ProviderError{Provider: GeminiProviderName, Kind: KindUnknown, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", &ProviderError{Provider: GeminiProviderName, Kind: KindSafety, StatusCode: resp.StatusCode, Message: "prompt blocked: " + out.PromptFeedback.BlockReason}
	}
	if len(out.Candidates) == 0 {
		return "", &ProviderError{Provider: GeminiProviderName, Kind: KindUnknown, StatusCode: resp.StatusCode, Err: errors.New("no candidates returned")}
	}

	cand := out.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())

	if text == "" {
		if cand.FinishReason == "SAFETY" || cand.FinishReason == "PROHIBITED_CONTENT" {
			return "", &ProviderError{Provider: GeminiProviderName, Kind: KindSafety, StatusCode: resp.StatusCode, Message: "response blocked: " + cand.FinishReason}
		}
		// A tiny probe call can legitimately stop at MAX_TOKENS before emitting text.
		if cand.FinishReason != "MAX_TOKENS" {
			return "", &ProviderError{Provider: GeminiProviderName, Kind: KindUnknown, StatusCode: resp.StatusCode, Message: "empty response, finish reason " + cand.FinishReason}
		}
	}
	return text, nil
}
