package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// Platform is the platform name signals use for Polymarket markets.
const Platform = "polymarket"

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market metadata and settlement state.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Platform implements domain.MarketResolver.
func (g *GammaClient) Platform() string { return Platform }

// GetMarket returns a single market by its ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (APIMarket, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(id))

	body, err := g.doGet(ctx, path)
	if err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var m APIMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return m, nil
}

// MarketContext builds an analysis context from a live market: its question,
// current prices and event time.
func (g *GammaClient) MarketContext(ctx context.Context, id string) (domain.Context, error) {
	m, err := g.GetMarket(ctx, id)
	if err != nil {
		return domain.Context{}, err
	}
	yes, no := m.Prices()
	return domain.Context{
		EventID:     m.ID,
		Title:       m.Question,
		CurrentOdds: domain.Odds{Yes: yes, No: no},
		EventDate:   m.EventTime(),
		Platform:    Platform,
		MarketID:    m.ID,
	}, nil
}

// GetResolution reports whether a market has settled and which side won. A
// closed market without a winning token or a 1/0 price split is treated as
// not yet resolved (UMA disputes keep markets closed but unsettled).
func (g *GammaClient) GetResolution(ctx context.Context, marketID string) (domain.ResolutionRecord, error) {
	m, err := g.GetMarket(ctx, marketID)
	if err != nil {
		return domain.ResolutionRecord{}, err
	}

	rec := domain.ResolutionRecord{MarketID: marketID, Platform: Platform}
	if !m.Closed {
		return rec, nil
	}

	side, ok := winningSide(&m)
	if !ok {
		return rec, nil
	}
	rec.Resolved = true
	rec.Outcome = side
	if t, ok := parseTime(m.ClosedTime); ok {
		rec.ResolvedAt = t
	} else if t, ok := parseTime(m.UpdatedAt); ok {
		rec.ResolvedAt = t
	}
	return rec, nil
}

func winningSide(m *APIMarket) (domain.Side, bool) {
	for _, t := range m.Tokens {
		if t.Winner {
			return domain.ParseSide(t.Outcome)
		}
	}
	yes, no := m.Prices()
	switch {
	case yes >= 0.99 && no <= 0.01:
		return domain.SideYes, true
	case no >= 0.99 && yes <= 0.01:
		return domain.SideNo, true
	}
	return "", false
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

var _ domain.MarketResolver = (*GammaClient)(nil)
