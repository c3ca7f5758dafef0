package htmlinclude

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pthm/htmlinclude/lib/encoding"
)

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors are distinct
	errs := []error{
		ErrMissingSrc,
		ErrFetchFailed,
		ErrInvalidFormat,
		ErrSignatureInvalid,
		ErrDecryptFailed,
		ErrMaxDepth,
	}

	for i, err1 := range errs {
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestFetchError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&FetchError{Src: "a.html", Reason: "connection reset", Err: cause})

	if !errors.Is(err, ErrFetchFailed) {
		t.Error("FetchError does not match ErrFetchFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("FetchError does not unwrap to its cause")
	}
	want := `htmlinclude: could not fetch URI specified by src attribute (i.e., "a.html") because: connection reset`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var fe *FetchError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &fe) || fe.Src != "a.html" {
		t.Error("errors.As through wrapping failed")
	}
}

func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"ErrMissingSrc", ErrMissingSrc, true},
		{"wrapped ErrMissingSrc", fmt.Errorf("wrapped: %w", ErrMissingSrc), true},
		{"fetch error", &FetchError{Src: "a", Reason: "b"}, false},
		{"other error", errors.New("other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsConfigurationError(tt.err)
			if result != tt.expect {
				t.Errorf("IsConfigurationError(%v) = %v, want %v", tt.err, result, tt.expect)
			}
		})
	}
}

func TestIsFetchError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"FetchError", &FetchError{Src: "a", Reason: "b"}, true},
		{"wrapped FetchError", fmt.Errorf("wrapped: %w", &FetchError{Src: "a", Reason: "b"}), true},
		{"ErrFetchFailed", ErrFetchFailed, true},
		{"ErrMissingSrc", ErrMissingSrc, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsFetchError(tt.err)
			if result != tt.expect {
				t.Errorf("IsFetchError(%v) = %v, want %v", tt.err, result, tt.expect)
			}
		})
	}
}

func TestWrapEncodingError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect error
	}{
		{"nil", nil, nil},
		{"invalid format", encoding.ErrInvalidFormat, ErrInvalidFormat},
		{"wrapped invalid format", fmt.Errorf("%w: eof", encoding.ErrInvalidFormat), ErrInvalidFormat},
		{"signature", encoding.ErrSignatureInvalid, ErrSignatureInvalid},
		{"decrypt", encoding.ErrDecryptFailed, ErrDecryptFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapEncodingError(tt.err)
			if got != tt.expect {
				t.Errorf("wrapEncodingError(%v) = %v, want %v", tt.err, got, tt.expect)
			}
			if tt.expect != nil && !IsDecodeError(got) {
				t.Errorf("IsDecodeError(%v) = false", got)
			}
		})
	}

	other := errors.New("other")
	if wrapEncodingError(other) != other {
		t.Error("unrelated errors should pass through")
	}
}
