// HTTP fact collector.
//
// The on-demand collection service is an opaque collaborator: one POST asks
// it to gather facts for a destination, and it writes whatever it finds into
// the shared store. The client carries no retry logic; the builder's single
// attempt is the whole contract.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPCollector asks a remote collection service to gather facts.
type HTTPCollector struct {
	BaseURL string
	httpc   *http.Client
}

// NewHTTPCollector builds a collector client for baseURL. The timeout is a
// transport-level ceiling; per-call budgets come from the caller's context.
func NewHTTPCollector(baseURL string, timeout time.Duration) *HTTPCollector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCollector{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Collect implements Collector.
func (c *HTTPCollector) Collect(ctx context.Context, destination, country string) error {
	if c.BaseURL == "" {
		return fmt.Errorf("fact collector not configured")
	}
	body, err := json.Marshal(map[string]string{
		"destination": destination,
		"country":     country,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/collect", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("fact collector: %s", resp.Status)
	}
	return nil
}
