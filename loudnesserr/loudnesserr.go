// Package loudnesserr classifies the errors this module's components
// report, using package-level errors.New sentinel values wrapped with
// fmt.Errorf("...: %w", ...) for dynamic context. Kind lets the CLI and
// scan scheduler decide policy (skip-and-continue vs. fail-fast) without
// parsing error strings.
package loudnesserr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for policy decisions, independent of its
// message text.
type Kind int

const (
	// Unknown is the zero value; Of returns it for errors this package
	// did not originate.
	Unknown Kind = iota
	InvalidSampleRate
	UnsupportedChannelCount
	DecoderOpenFailed
	DecoderReadFailed
	UnsupportedFormat
	TagReadFailed
	TagWriteFailed
	OpusHeaderMalformed
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case InvalidSampleRate:
		return "InvalidSampleRate"
	case UnsupportedChannelCount:
		return "UnsupportedChannelCount"
	case DecoderOpenFailed:
		return "DecoderOpenFailed"
	case DecoderReadFailed:
		return "DecoderReadFailed"
	case UnsupportedFormat:
		return "UnsupportedFormat"
	case TagReadFailed:
		return "TagReadFailed"
	case TagWriteFailed:
		return "TagWriteFailed"
	case OpusHeaderMalformed:
		return "OpusHeaderMalformed"
	case InternalInvariant:
		return "InternalInvariant"
	default:
		return "Unknown"
	}
}

// kindError pairs a Kind with a wrapped cause, so errors.Is/As keep
// working against the wrapped sentinel while Of can still recover the
// Kind.
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

func (e *kindError) Unwrap() error {
	return e.cause
}

// Wrap annotates cause with kind and, when context is non-empty, a
// "context: cause" message.
func Wrap(kind Kind, context string, cause error) error {
	if cause == nil {
		return nil
	}

	if context != "" {
		cause = fmt.Errorf("%s: %w", context, cause)
	}

	return &kindError{kind: kind, cause: cause}
}

// Of recovers the Kind an error was Wrapped with, or Unknown if err was
// never wrapped by this package.
func Of(err error) Kind {
	var ke *kindError

	if errors.As(err, &ke) {
		return ke.kind
	}

	return Unknown
}
