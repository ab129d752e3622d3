package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a user id cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// FailureKind classifies a gateway failure so the engine can pick the right
// user-facing reaction without inspecting transport details.
type FailureKind string

const (
	// FailNetwork covers connection errors and other transport failures.
	FailNetwork FailureKind = "network"
	// FailTimeout covers deadline expiry on the call.
	FailTimeout FailureKind = "timeout"
	// FailStatus covers non-success HTTP statuses other than 404.
	FailStatus FailureKind = "status"
	// FailNotFound covers 404 responses: the referenced entity no longer exists.
	FailNotFound FailureKind = "not-found"
	// FailDecode covers unparseable response bodies.
	FailDecode FailureKind = "decode"
)

// GatewayError is the value every backend failure is converted into before it
// reaches the engine. It never escapes as a raw transport error.
type GatewayError struct {
	Kind   FailureKind
	Op     string // backend operation, e.g. "auth/start"
	Status int    // HTTP status when Kind is FailStatus or FailNotFound
	Detail string // optional human-readable detail from the backend
	Err    error  // underlying cause, may be nil
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("gateway %s: %s (http %d)", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Kind)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a gateway not-found failure.
func IsNotFound(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == FailNotFound
}

// FailureOf extracts the failure kind from err, defaulting to FailNetwork for
// errors that did not originate in the gateway.
func FailureOf(err error) FailureKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return FailNetwork
}
