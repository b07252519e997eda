package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const maxExtraBytes = 50 << 20

// fetchExtra downloads an operator-configured playlist or guide.
func fetchExtra(ctx context.Context, hc *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("extra source: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extra source: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("extra source: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExtraBytes))
	if err != nil {
		return nil, fmt.Errorf("extra source: read body: %w", err)
	}
	return body, nil
}
