package decode

import (
	"errors"
	"fmt"

	"github.com/justapithecus/logbook/types"
)

// ErrorKind classifies decode failures.
type ErrorKind int

const (
	// ErrorEnvelope indicates the body is not a svdata JSON envelope.
	ErrorEnvelope ErrorKind = iota
	// ErrorAPIResult indicates the server reported a failed call (api_result != 1).
	ErrorAPIResult
	// ErrorSchema indicates a field is missing or has an unexpected shape.
	ErrorSchema
	// ErrorUnsupported indicates there is no decoder for the data type.
	ErrorUnsupported
)

// String returns the kind name used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case ErrorEnvelope:
		return "envelope"
	case ErrorAPIResult:
		return "api_result"
	case ErrorSchema:
		return "schema"
	case ErrorUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// DecodeError is returned when a classified body cannot be turned into a
// typed payload. Decode errors are never folded into the world state.
type DecodeError struct {
	Kind ErrorKind
	Type types.DataType
	// Path is the JSON path or form field that failed, if any.
	Path string
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s: %s", e.Type, e.Msg)
	if e.Path != "" {
		msg = fmt.Sprintf("decode %s: %s: %s", e.Type, e.Path, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is (or wraps) a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// KindOf returns the kind of a decode error, or false when err is not one.
func KindOf(err error) (ErrorKind, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
