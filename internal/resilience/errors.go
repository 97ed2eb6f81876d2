package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// PanicError carries a value recovered from a panicking lookup so it can flow
// through the retry path like any other error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover converts a recovered panic value into an error. Call it as
// `defer resilience.Recover(&err)` in functions with a named error result.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = &PanicError{Value: r}
	}
}

// IsTransient reports whether err (or any error in its chain) is a common
// transient network failure: a timeout, connection reset or DNS failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *PanicError
	if errors.As(err, &pe) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
}

// ClassifyError categorizes an error as "transient" or "permanent" for logs.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
