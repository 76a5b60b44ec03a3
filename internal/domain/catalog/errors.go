// Package catalog defines the failure taxonomy shared by catalog backends.
package catalog

import "github.com/cockroachdb/errors"

// Marker errors. Backends wrap the underlying cause and mark it with one of these,
// callers test with errors.Is.
var (
	// ErrNetwork marks a failed request (dial, timeout, non-2xx status).
	ErrNetwork = errors.New("catalog network error")
	// ErrMalformedResponse marks a payload that is missing the expected fields.
	ErrMalformedResponse = errors.New("catalog malformed response")
	// ErrNotFound marks a lookup that returned no record. It is also a malformed response.
	ErrNotFound = errors.New("catalog song not found")
)

// Network marks err as a network failure.
func Network(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrNetwork)
}

// Malformed marks err as a malformed response.
func Malformed(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrMalformedResponse)
}

// NotFound returns an error for a missing song id.
func NotFound(id string) error {
	err := errors.Mark(errors.Newf("no song with id %q", id), ErrNotFound)
	return errors.Mark(err, ErrMalformedResponse)
}
