package vulndb

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind enumerates the ways a lookup can fail. Callers treat every kind
// as "no data for this component"; the kind exists for logs and metrics.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindCanceled    ErrorKind = "canceled"
	KindTransport   ErrorKind = "transport"
	KindStatus      ErrorKind = "status"
	KindRateLimited ErrorKind = "rate_limited"
	KindDecode      ErrorKind = "decode"
)

// LookupError is returned by a VulnerabilitySource when a query could not be
// answered.
type LookupError struct {
	Kind      ErrorKind
	Component string
	// StatusCode is set for KindStatus and KindRateLimited.
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("vulnerability lookup for %q failed (%s, HTTP %d): %v", e.Component, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("vulnerability lookup for %q failed (%s): %v", e.Component, e.Kind, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// classifyTransportError maps an error from the HTTP round trip or the rate
// limiter onto a kind.
func classifyTransportError(ctx context.Context, err error) ErrorKind {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}
