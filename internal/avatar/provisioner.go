package avatar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Provisioner produces an avatar URL for a newly registered account
type Provisioner interface {
	Provision(ctx context.Context, username string) (string, error)
}

// HTTPProvisioner builds avatar URLs against a generator service and
// verifies the generated image actually resolves before handing it out.
type HTTPProvisioner struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvisioner creates a provisioner against the given generator base
// URL (e.g. https://api.dicebear.com/9.x/bottts/svg).
func NewHTTPProvisioner(baseURL string) *HTTPProvisioner {
	return &HTTPProvisioner{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (p *HTTPProvisioner) Provision(ctx context.Context, username string) (string, error) {
	avatarURL := fmt.Sprintf("%s?seed=%s", p.baseURL, url.QueryEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("avatar generator returned status %d", resp.StatusCode)
	}
	return avatarURL, nil
}

// NoopProvisioner hands out generator URLs without the verification round
// trip. Used in tests and when the deployment has no outbound network.
type NoopProvisioner struct {
	baseURL string
}

// NewNoopProvisioner creates a no-network provisioner
func NewNoopProvisioner(baseURL string) *NoopProvisioner {
	return &NoopProvisioner{baseURL: baseURL}
}

func (p *NoopProvisioner) Provision(ctx context.Context, username string) (string, error) {
	if p.baseURL == "" {
		return "", nil
	}
	return fmt.Sprintf("%s?seed=%s", p.baseURL, url.QueryEscape(username)), nil
}

var _ Provisioner = (*HTTPProvisioner)(nil)
var _ Provisioner = (*NoopProvisioner)(nil)
