//go:build !cgo

package speaker

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tunebox/internal/app/transport"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

// Open always fails when cgo is disabled.
func (e *Engine) Open(ctx context.Context, url string) (transport.Handle, error) {
	return nil, errors.New("speaker engine requires a cgo build")
}
