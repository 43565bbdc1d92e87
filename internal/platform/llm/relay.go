package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/signalforge/internal/analysis"
)

// RelayProvider delegates the reasoning call to a backend endpoint that
// accepts {"prompt", "mode"} and answers with the model's text.
type RelayProvider struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewRelayProvider creates a delegated provider. token, if set, is sent as a
// bearer token.
func NewRelayProvider(endpoint, token string) *RelayProvider {
	return &RelayProvider{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *RelayProvider) Name() string { return "relay" }

type relayResponse struct {
	Text     string          `json:"text"`
	Analysis json.RawMessage `json:"analysis"`
	Error    string          `json:"error"`
}

// Complete posts the prompt. The relay may return the model text under
// "text" or an already-parsed object under "analysis"; both are handed back
// as text for the executor to normalise.
func (p *RelayProvider) Complete(ctx context.Context, req analysis.ProviderRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm: relay: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: relay: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: relay: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: relay: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: relay: status %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var parsed relayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Some relays return the model text verbatim.
		return string(body), nil
	}
	switch {
	case parsed.Error != "":
		return "", fmt.Errorf("llm: relay: %s", parsed.Error)
	case len(parsed.Analysis) > 0 && string(parsed.Analysis) != "null":
		return string(parsed.Analysis), nil
	case parsed.Text != "":
		return parsed.Text, nil
	}
	return string(body), nil
}

var _ analysis.Provider = (*RelayProvider)(nil)
