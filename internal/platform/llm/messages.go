// Package llm contains the reasoning providers the analysis executor calls:
// a direct client for a messages-style LLM API and a relay client for
// deployments where a backend holds the API key.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/signalforge/internal/analysis"
	"github.com/alanyoungcy/signalforge/internal/domain"
)

const (
	defaultEndpoint   = "https://api.anthropic.com/v1/messages"
	defaultAPIVersion = "2023-06-01"
	defaultMaxTokens  = 2048
	deepMaxTokens     = 4096

	systemPrompt = "You are a disciplined prediction-market analyst. Answer only with the JSON object requested."
)

// MessagesConfig configures a MessagesProvider.
type MessagesConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	APIVersion string
	// WebSearch attaches the provider's web search tool to deep-mode
	// requests so the model can corroborate and cite sources.
	WebSearch bool
}

// MessagesProvider calls an LLM messages API directly.
type MessagesProvider struct {
	cfg    MessagesConfig
	client *http.Client
}

// NewMessagesProvider creates a direct provider.
func NewMessagesProvider(cfg MessagesConfig) *MessagesProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	return &MessagesProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *MessagesProvider) Name() string { return "messages:" + p.cfg.Model }

type messagesRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    string           `json:"system,omitempty"`
	Messages  []messageContent `json:"messages"`
	Tools     []map[string]any `json:"tools,omitempty"`
}

type messageContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt and returns the concatenated text blocks of the
// reply.
func (p *MessagesProvider) Complete(ctx context.Context, req analysis.ProviderRequest) (string, error) {
	if p.cfg.APIKey == "" {
		return "", fmt.Errorf("llm: messages provider: api key not configured")
	}

	body := messagesRequest{
		Model:     p.cfg.Model,
		MaxTokens: defaultMaxTokens,
		System:    systemPrompt,
		Messages:  []messageContent{{Role: "user", Content: req.Prompt}},
	}
	if req.Mode == domain.ModeDeep {
		body.MaxTokens = deepMaxTokens
		if p.cfg.WebSearch {
			body.Tools = []map[string]any{{"type": "web_search_20250305", "name": "web_search", "max_uses": 5}}
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", p.cfg.APIVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 512))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ analysis.Provider = (*MessagesProvider)(nil)
