package weather

import (
	"errors"
	"fmt"
)

// ErrLocationNotFound is returned when a location name cannot be geocoded.
var ErrLocationNotFound = errors.New("location not found")

// ErrorKind tells callers whether retrying a failed lookup can help.
type ErrorKind int

const (
	// KindTransport covers non-2xx responses, timeouts, DNS failures and an open circuit.
	KindTransport ErrorKind = iota + 1
	// KindSchema covers undecodable payloads and payloads missing expected fields.
	KindSchema
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// ServiceError is the single error type surfaced by the weather gateway.
type ServiceError struct {
	Kind     ErrorKind
	Op       string
	Location string
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("weather %s failure during %s for %q: %v", e.Kind, e.Op, e.Location, e.Err)
	}
	return fmt.Sprintf("weather %s failure during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may succeed on a later attempt.
func (e *ServiceError) Retryable() bool {
	return e.Kind == KindTransport
}

// TransportError wraps err as a transport failure of op.
func TransportError(op string, err error) *ServiceError {
	return &ServiceError{Kind: KindTransport, Op: op, Err: err}
}

// SchemaError wraps err as an unexpected-response failure of op.
func SchemaError(op string, err error) *ServiceError {
	return &ServiceError{Kind: KindSchema, Op: op, Err: err}
}

// withLocation stamps the location name on a ServiceError, leaving other errors alone.
func withLocation(err error, location string) error {
	var se *ServiceError
	if errors.As(err, &se) && se.Location == "" {
		cp := *se
		cp.Location = location
		return &cp
	}
	return err
}
