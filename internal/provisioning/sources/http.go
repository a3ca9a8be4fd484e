package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"sysconfigd/pkg/logging"
)

// DefaultProbeTimeout is the bounded-latency default for metadata probes
// (spec §4.2: "a bounded-latency probe (default 5 s, configurable)").
const DefaultProbeTimeout = 5 * time.Second

// checkMetadataService probes url with an HTTP GET, returning whether it
// answered with a 2xx status inside timeout. Any transport error, timeout,
// or non-2xx status is treated as "unavailable," not a fatal error (spec
// §4.2: "a source that times out on probe is unavailable").
func checkMetadataService(ctx context.Context, url string, headers map[string]string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logging.Debug("Provisioning", "metadata probe %s unreachable: %v", url, err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// fetchMetadata issues a GET against url and returns the response body as
// text, failing cleanly (spec §4.2: "a source that becomes unavailable
// mid-load must fail cleanly rather than hang") on any transport error,
// timeout, or non-2xx status.
func fetchMetadata(ctx context.Context, method, url string, headers map[string]string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response from %s: %w", url, err)
	}
	return string(body), nil
}
