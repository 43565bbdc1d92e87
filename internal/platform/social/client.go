// Package social reads recent posts about a topic from a social search API.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// Client is the social search REST client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a social search client. token is sent as a bearer
// token when set.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type searchResponse struct {
	Posts []struct {
		Author    string `json:"author"`
		Text      string `json:"text"`
		Likes     int    `json:"likes"`
		CreatedAt string `json:"created_at"`
	} `json:"posts"`
}

// RecentPosts returns up to limit posts about topic, newest first.
func (c *Client) RecentPosts(ctx context.Context, topic string, limit int) ([]domain.SocialPost, error) {
	params := url.Values{}
	params.Set("q", topic)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "recent")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("social: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("social: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("social: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("social: %w", domain.ErrUnauthorized)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("social: %w", domain.ErrRateLimited)
	default:
		return nil, fmt.Errorf("social: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("social: decode response: %w", err)
	}

	posts := make([]domain.SocialPost, 0, len(out.Posts))
	for _, p := range out.Posts {
		post := domain.SocialPost{Author: p.Author, Text: p.Text, Likes: p.Likes}
		if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
			post.CreatedAt = t.UTC()
		}
		posts = append(posts, post)
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}
