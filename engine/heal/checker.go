package heal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// LinkChecker probes a recommendation's link for liveness.
type LinkChecker interface {
	Check(ctx context.Context, link string) error
}

// HTTPChecker validates links with a HEAD request, following redirects.
// Anything other than a 200 counts as broken; a stale posting behind a
// redirect chain that dead-ends is exactly the failure mode being healed.
type HTTPChecker struct {
	client *http.Client
}

// NewHTTPChecker builds a checker with the given per-request timeout.
func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPChecker{
		client: &http.Client{Timeout: timeout},
	}
}

// Check implements LinkChecker.
func (c *HTTPChecker) Check(ctx context.Context, link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("head request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
