package extent

import "fmt"

// Kind represents a distinct semantic category of failure raised by the
// extent store, writer pool, reader, or catalog. Callers branch on Kind
// rather than sentinel values so the same error type carries both the
// coarse-grained category and a human-readable message.
type Kind int

const (
	// KindNotInitialized indicates an operation was issued before Open
	// completed, or after the store was closed.
	KindNotInitialized Kind = iota + 1

	// KindClosed indicates an operation was issued after Close.
	KindClosed

	// KindUnknownDestination indicates an append referenced an
	// unconfigured destination id.
	KindUnknownDestination

	// KindExtentNotFound indicates a read or delete referenced an extent
	// id absent from the catalog.
	KindExtentNotFound

	// KindRangeExceeded indicates a read requested bytes beyond the
	// extent's recorded size.
	KindRangeExceeded

	// KindIOError indicates an underlying filesystem failure.
	KindIOError

	// KindOperationCancelled indicates the caller's context was
	// cancelled or its deadline exceeded mid-operation.
	KindOperationCancelled

	// KindPayloadTooLarge indicates a write would exceed a configured
	// per-message or per-block limit.
	KindPayloadTooLarge
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindNotInitialized:
		return "NotInitialized"
	case KindClosed:
		return "Closed"
	case KindUnknownDestination:
		return "UnknownDestination"
	case KindExtentNotFound:
		return "ExtentNotFound"
	case KindRangeExceeded:
		return "RangeExceeded"
	case KindIOError:
		return "IOError"
	case KindOperationCancelled:
		return "OperationCancelled"
	case KindPayloadTooLarge:
		return "PayloadTooLarge"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Error is the single error type raised across pkg/extent and its
// subpackages. It carries a Kind for branching, a message, and optionally
// the extent/destination id the error pertains to.
type Error struct {
	Kind          Kind
	Message       string
	ExtentID      string
	DestinationID string
	Err           error // wrapped cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.ExtentID != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s (extent %s): %v", e.Kind, e.Message, e.ExtentID, e.Err)
	case e.ExtentID != "":
		return fmt.Sprintf("%s: %s (extent %s)", e.Kind, e.Message, e.ExtentID)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the wrapped cause, if any, so errors.Is/errors.As work
// through this type.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, extent.NewNotInitializedError()) style checks match any
// *Error of that Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewNotInitializedError creates a NotInitialized error.
func NewNotInitializedError() *Error {
	return &Error{Kind: KindNotInitialized, Message: "store not initialized"}
}

// NewClosedError creates a Closed error.
func NewClosedError() *Error {
	return &Error{Kind: KindClosed, Message: "store is closed"}
}

// NewUnknownDestinationError creates an UnknownDestination error.
func NewUnknownDestinationError(destinationID string) *Error {
	return &Error{
		Kind:          KindUnknownDestination,
		Message:       "destination not configured",
		DestinationID: destinationID,
	}
}

// NewExtentNotFoundError creates an ExtentNotFound error.
func NewExtentNotFoundError(extentID string) *Error {
	return &Error{Kind: KindExtentNotFound, Message: "extent not found", ExtentID: extentID}
}

// NewRangeExceededError creates a RangeExceeded error.
func NewRangeExceededError(extentID string, offset, count, size int64) *Error {
	return &Error{
		Kind:     KindRangeExceeded,
		Message:  fmt.Sprintf("requested range [%d,%d) exceeds size %d", offset, offset+count, size),
		ExtentID: extentID,
	}
}

// NewIOError wraps an underlying filesystem error.
func NewIOError(extentID string, cause error) *Error {
	return &Error{Kind: KindIOError, Message: "i/o failure", ExtentID: extentID, Err: cause}
}

// NewOperationCancelledError wraps a context cancellation cause.
func NewOperationCancelledError(cause error) *Error {
	return &Error{Kind: KindOperationCancelled, Message: "operation cancelled", Err: cause}
}

// NewPayloadTooLargeError creates a PayloadTooLarge error.
func NewPayloadTooLargeError(size, limit int64) *Error {
	return &Error{
		Kind:    KindPayloadTooLarge,
		Message: fmt.Sprintf("payload size %d exceeds limit %d", size, limit),
	}
}

// IsNotFound reports whether err is an ExtentNotFound error.
func IsNotFound(err error) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	return e.Kind == KindExtentNotFound
}
