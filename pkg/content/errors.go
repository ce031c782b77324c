package content

import (
	"errors"
	"fmt"
)

// Pre-analysis rejection kinds. These are the only errors a caller can
// receive from normalization; everything past the normalizer degrades to a
// decision instead of failing.
var (
	// ErrSizeExceeded means the payload is over the configured cap for its
	// source class. The payload is rejected whole; it is never truncated,
	// since truncation would hide attack payloads and corrupt analysis.
	ErrSizeExceeded = errors.New("payload size exceeds configured cap")

	// ErrInvalidEncoding means the payload cannot be decoded as its
	// declared content type.
	ErrInvalidEncoding = errors.New("payload does not decode as declared content type")
)

// SizeError wraps ErrSizeExceeded with the observed and allowed sizes.
type SizeError struct {
	Size int
	Cap  int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("payload is %d bytes, cap is %d: %v", e.Size, e.Cap, ErrSizeExceeded)
}

func (e *SizeError) Unwrap() error { return ErrSizeExceeded }

// EncodingError wraps ErrInvalidEncoding with the declared type.
type EncodingError struct {
	Declared string
	Detail   string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("declared %q: %s: %v", e.Declared, e.Detail, ErrInvalidEncoding)
}

func (e *EncodingError) Unwrap() error { return ErrInvalidEncoding }
