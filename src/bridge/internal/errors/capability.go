package errors

import (
	stderr "errors"
	"fmt"
)

// CapabilityUnavailableError reports that a host capability was turned off for the rest of the
// session after its process crashed too often. Callers treat it like an unsupported feature.
type CapabilityUnavailableError struct {
	Capability string
	Crashes    int
}

// Error is an implementation of the error interface.
func (e *CapabilityUnavailableError) Error() string {
	return fmt.Sprintf("capability %q is unavailable after %d crashes", e.Capability, e.Crashes)
}

// IsCapabilityUnavailable reports whether a CapabilityUnavailableError is part of the error chain.
func IsCapabilityUnavailable(e error) bool {
	var cu *CapabilityUnavailableError
	return stderr.As(e, &cu)
}
