package catalog

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestMarkers(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	netErr := Network(cause, "failed to send request")
	assert.True(t, errors.Is(netErr, ErrNetwork))
	assert.False(t, errors.Is(netErr, ErrMalformedResponse))
	assert.Contains(t, netErr.Error(), "connection refused")

	malformed := Malformed(cause, "failed to parse response")
	assert.True(t, errors.Is(malformed, ErrMalformedResponse))
	assert.False(t, errors.Is(malformed, ErrNetwork))

	notFound := NotFound("abc")
	assert.True(t, errors.Is(notFound, ErrNotFound))
	assert.True(t, errors.Is(notFound, ErrMalformedResponse))
	assert.Contains(t, notFound.Error(), "abc")
}
