package htmlinclude

import (
	"errors"
	"fmt"
)

// Sentinel errors for include operations.
var (
	// ErrMissingSrc is the configuration error raised when a load starts
	// without a src attribute (or with an empty one).
	ErrMissingSrc = errors.New("htmlinclude: missing src attribute on <html-include> element")

	// ErrFetchFailed is matched by every *FetchError.
	ErrFetchFailed = errors.New("htmlinclude: fetch failed")

	ErrInvalidFormat    = errors.New("htmlinclude: invalid parameter format")
	ErrSignatureInvalid = errors.New("htmlinclude: signature verification failed")
	ErrDecryptFailed    = errors.New("htmlinclude: parameter decryption failed")
)

// FetchError reports a failed attempt to fetch the URI named by src.
//
// Reason is taken verbatim from the transport error or the response's
// status description. Status is zero when no response was received.
type FetchError struct {
	Src    string
	Reason string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("htmlinclude: could not fetch URI specified by src attribute (i.e., %q) because: %s", e.Src, e.Reason)
}

// Is reports whether target is ErrFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsConfigurationError checks if err is a missing-src error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingSrc)
}

// IsFetchError checks if err is a fetch error.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}

// IsDecodeError checks if err came from decoding signed or encrypted attributes.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrInvalidFormat) || errors.Is(err, ErrSignatureInvalid) || errors.Is(err, ErrDecryptFailed)
}
