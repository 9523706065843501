package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"houseform-api/internal/domain"
)

const maxBody = 1 << 20

// Fetcher loads project metadata JSON from the share contract's uri.
type Fetcher struct {
	Client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch returns the decoded document. Callers decide how to degrade on error.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*domain.Metadata, error) {
	if uri == "" {
		return nil, fmt.Errorf("metadata: empty uri")
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("metadata: %s returned %d", uri, resp.StatusCode)
	}
	var m domain.Metadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&m); err != nil {
		return nil, fmt.Errorf("metadata: decode: %w", err)
	}
	return &m, nil
}
