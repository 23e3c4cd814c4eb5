package proxy

import (
	"errors"
	"fmt"
)

// NetworkError is an upstream failure: connect, TLS, timeout or a broken
// response. The browser receives 502 and nothing is captured.
type NetworkError struct {
	// Op is the failing step: "forward", "connect" or "listen".
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("proxy %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("proxy %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is or wraps a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
