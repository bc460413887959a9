package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// IdentityClient validates a bearer token and resolves it to a subject id
type IdentityClient interface {
	GetUserID(ctx context.Context, token string) (string, error)
}

// HTTPIdentityClient talks to the hosted identity provider's user endpoint
type HTTPIdentityClient struct {
	baseURL string
	anonKey string
	client  *http.Client
}

var _ IdentityClient = (*HTTPIdentityClient)(nil)

func NewHTTPIdentityClient(baseURL, anonKey string, httpClient *http.Client) *HTTPIdentityClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPIdentityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  httpClient,
	}
}

func (c *HTTPIdentityClient) GetUserID(ctx context.Context, token string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("identity provider not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ErrUnauthenticated
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode identity response: %w", err)
	}
	if body.ID == "" {
		return "", ErrUnauthenticated
	}

	return body.ID, nil
}
