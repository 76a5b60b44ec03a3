// Package speaker plays MP3 streams on the local sound card.
package speaker

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// maxStreamBytes bounds a single downloaded stream.
const maxStreamBytes = 64 << 20

// Engine downloads a stream into memory and plays it through the speaker.
type Engine struct {
	httpClient *http.Client
}

// NewEngine creates a speaker engine.
func NewEngine(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// download fetches url fully into memory.
func (e *Engine) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Newf("stream returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxStreamBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read stream")
	}
	if len(data) > maxStreamBytes {
		return nil, errors.Newf("stream exceeds %d bytes", maxStreamBytes)
	}
	return data, nil
}
