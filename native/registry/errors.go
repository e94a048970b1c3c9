package registry

import "errors"

var (
	// ErrPropertyNotFound is returned when the referenced property id has
	// never been registered.
	ErrPropertyNotFound = errors.New("registry: property not found")
	// ErrUnauthorized is returned when the caller lacks the required
	// relationship to the property (owner, or delegate where accepted).
	ErrUnauthorized = errors.New("registry: unauthorized")
	// ErrInvalidMetadata is returned when a metadata update fails the
	// location check.
	ErrInvalidMetadata = errors.New("registry: invalid metadata")
	// ErrNotCompliant is returned when the compliance oracle explicitly
	// rejected the transfer recipient.
	ErrNotCompliant = errors.New("registry: recipient not compliant")
	// ErrComplianceCheckFailed is returned when the compliance oracle could
	// not be reached or errored, distinct from an explicit rejection so
	// callers can tell "denied" from "unknown".
	ErrComplianceCheckFailed = errors.New("registry: compliance check failed")
)
