package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ventia-app/ventia-backend/pkg/config"
)

// Profile is the subset of identity-provider user metadata the platform
// consumes during provisioning.
type Profile struct {
	ExternalID string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

// Client fetches user profiles from the identity provider.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a profile client with the configured bounded timeout.
func New(cfg config.IdentityConfig) *Client {
	timeout := cfg.ProfileTimeout
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.ProfileURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchProfile looks up the provider profile for an external identity id,
// authenticating with the caller's bearer token. Callers must tolerate
// failure here; provisioning falls back to placeholder metadata.
func (c *Client) FetchProfile(ctx context.Context, externalID, bearerToken string) (*Profile, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("identity profile endpoint not configured")
	}
	endpoint := c.baseURL + "/" + url.PathEscape(externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch identity profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode identity profile: %w", err)
	}
	if profile.ExternalID == "" {
		profile.ExternalID = externalID
	}
	return &profile, nil
}

// PlaceholderEmail derives a stable fallback address for identities whose
// provider profile could not be fetched.
func PlaceholderEmail(externalID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, externalID)
	return strings.ToLower(sanitized) + "@placeholder.ventia.app"
}
