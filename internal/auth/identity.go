// Package auth resolves bearer credentials to owner identities via the
// external identity service. The core only ever sees the opaque owner
// id the service returns.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/framerhq/framer/internal/config"
)

// Resolver turns a bearer token into an owner identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Client calls the identity service over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient builds an identity client from config.
func NewClient(cfg config.IdentityConfig) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type identityResponse struct {
	Owner string `json:"owner"`
}

// Resolve exchanges a bearer token for an owner id.
func (c *Client) Resolve(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/identity", nil)
	if err != nil {
		return "", fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("invalid credential")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var body identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode identity response: %w", err)
	}
	if body.Owner == "" {
		return "", fmt.Errorf("identity response missing owner")
	}
	return body.Owner, nil
}
