package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// TokenProvider supplies bearer tokens for outbound connector calls. The
// tenant ID is advisory: providers that do not need it ignore it.
type TokenProvider interface {
	Token(ctx context.Context, scopes []string, tenantID string) (string, error)
}

// StaticProvider returns a fixed token. Meant for local runs and tests.
type StaticProvider struct {
	Value string
}

func (p StaticProvider) Token(context.Context, []string, string) (string, error) {
	return p.Value, nil
}

// ClientCredentialsProvider acquires tokens through the OAuth2
// client-credentials flow. TokenURL may contain a "{tenant}" placeholder
// that is substituted per call.
type ClientCredentialsProvider struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

func (p *ClientCredentialsProvider) Token(ctx context.Context, scopes []string, tenantID string) (string, error) {
	conf := clientcredentials.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		TokenURL:     strings.ReplaceAll(p.TokenURL, "{tenant}", tenantID),
		Scopes:       scopes,
	}

	tok, err := conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("client credentials token request: %w", err)
	}

	return tok.AccessToken, nil
}

// ManagedIdentityProvider fetches tokens from an IMDS-style instance
// metadata endpoint, the way a workload with a user-assigned identity does:
// plain GET with a Metadata header, no embedded secret.
type ManagedIdentityProvider struct {
	Endpoint string
	ClientID string

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

const imdsAPIVersion = "2018-02-01"

func (p *ManagedIdentityProvider) Token(ctx context.Context, scopes []string, _ string) (string, error) {
	if len(scopes) == 0 {
		return "", errors.New("managed identity token request requires at least one scope")
	}

	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid IMDS endpoint %q: %w", p.Endpoint, err)
	}

	q := u.Query()
	q.Set("api-version", imdsAPIVersion)
	// IMDS takes a resource URI, not a scope.
	q.Set("resource", strings.TrimSuffix(scopes[0], "/.default"))
	if p.ClientID != "" {
		q.Set("client_id", p.ClientID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating IMDS request: %w", err)
	}
	req.Header.Set("Metadata", "true")

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("managed identity token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("managed identity endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("error decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("managed identity endpoint returned an empty token")
	}

	return body.AccessToken, nil
}
