package mbus

import "fmt"

// ErrorCode identifies the kind of failure attached to a Reply. Codes below
// FatalErrorLimit are transient: a RetryPolicy may choose to retry them, and
// an ancestor policy may declare them consumable via
// RoutingContext.AddConsumableError so that resolution does not abort.
// Codes at or above FatalErrorLimit are permanent and are never retried.
type ErrorCode int

// The error taxonomy used by the resolver (spec §4.8).
const (
	// NONE indicates no error.
	NONE ErrorCode = 0

	// FatalErrorLimit is the sentinel threshold separating transient codes
	// (< FatalErrorLimit) from fatal ones (>= FatalErrorLimit).
	FatalErrorLimit ErrorCode = 100000

	// NoServicesForRoute is synthesized when a policy's select adds no
	// children and sets no reply. Transient: a later attempt may find
	// services that were temporarily unavailable.
	NoServicesForRoute ErrorCode = 1

	// ConnectionError is a generic transient transport failure, produced by
	// INetwork implementations.
	ConnectionError ErrorCode = 2

	// SessionBusy is a generic transient backpressure signal from a
	// recipient, produced by INetwork implementations.
	SessionBusy ErrorCode = 3

	// IllegalRoute is fatal: the route expression or routing table
	// reference could not be resolved (empty route, missing named route,
	// resolution depth exceeded, malformed directive).
	IllegalRoute ErrorCode = FatalErrorLimit + 1

	// UnknownPolicy is fatal: the protocol's policy factory did not
	// recognize the policy name in a Policy directive.
	UnknownPolicy ErrorCode = FatalErrorLimit + 2

	// PolicyError is fatal: a routing policy's Select or Merge panicked.
	PolicyError ErrorCode = FatalErrorLimit + 3

	// AppFatalError is fatal: a policy's Merge produced no reply.
	AppFatalError ErrorCode = FatalErrorLimit + 4

	// SendAborted is fatal: set as the only error of the root's reply when
	// an unconsumed, non-retryable error found during resolution stops the
	// remaining leaves from being dispatched. The leaves themselves get no
	// reply, and the error that caused the abort is not copied into the
	// root's reply.
	SendAborted ErrorCode = FatalErrorLimit + 5

	// Timeout is fatal: synthesized when a message's remaining
	// time-to-live would not survive the computed retry delay.
	Timeout ErrorCode = FatalErrorLimit + 6
)

// IsFatal reports whether code is at or above FatalErrorLimit.
func (c ErrorCode) IsFatal() bool {
	return c >= FatalErrorLimit
}

func (c ErrorCode) String() string {
	switch c {
	case NONE:
		return "NONE"
	case NoServicesForRoute:
		return "NO_SERVICES_FOR_ROUTE"
	case ConnectionError:
		return "CONNECTION_ERROR"
	case SessionBusy:
		return "SESSION_BUSY"
	case IllegalRoute:
		return "ILLEGAL_ROUTE"
	case UnknownPolicy:
		return "UNKNOWN_POLICY"
	case PolicyError:
		return "POLICY_ERROR"
	case AppFatalError:
		return "APP_FATAL_ERROR"
	case SendAborted:
		return "SEND_ABORTED"
	case Timeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("ERROR_%d", int(c))
	}
}

// RoutingError is the concrete error type used wherever this package returns
// a plain `error` for a resolution failure that also needs to carry a code
// (config loading, spec validation). Reply-attached failures use ReplyError
// instead; RoutingError is for failures that never made it into a Reply.
type RoutingError struct {
	Code    ErrorCode
	Message string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newRoutingError(code ErrorCode, format string, args ...interface{}) *RoutingError {
	return &RoutingError{Code: code, Message: fmt.Sprintf(format, args...)}
}
