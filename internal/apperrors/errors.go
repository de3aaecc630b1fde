package apperrors

import (
	"errors"
	"net/http"
)

// Kinds. Check with errors.Is.
var (
	// ErrInvalidRequest is missing or malformed input, caught before any external call.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is a referenced entity that does not exist (or is not visible to the caller).
	ErrNotFound = errors.New("not found")
	// ErrConflict is a concurrent operation on the same resource.
	ErrConflict = errors.New("conflict")
	// ErrProvider is an external gateway failure.
	ErrProvider = errors.New("provider error")
	// ErrPersistence is a store read or write failure.
	ErrPersistence = errors.New("persistence error")
)

// Error carries a kind, a user-facing message and the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error

	// Details is optional extra context shown to the caller.
	Details string

	// Status overrides the kind's default HTTP status when non-zero.
	Status int
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func InvalidRequest(msg string) error {
	return &Error{Kind: ErrInvalidRequest, Message: msg}
}

// InvalidRequestDetails is InvalidRequest with caller-facing details.
func InvalidRequestDetails(msg, details string) error {
	return &Error{Kind: ErrInvalidRequest, Message: msg, Details: details}
}

func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func Provider(status int, msg string, err error) error {
	return &Error{Kind: ErrProvider, Message: msg, Err: err, Status: status}
}

func Persistence(msg string, err error) error {
	return &Error{Kind: ErrPersistence, Message: msg, Err: err}
}

// Kind returns the kind sentinel for err, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{ErrInvalidRequest, ErrNotFound, ErrConflict, ErrProvider, ErrPersistence} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName is the stable machine-readable name of err's kind.
func KindName(err error) string {
	switch Kind(err) {
	case ErrInvalidRequest:
		return "InvalidRequest"
	case ErrNotFound:
		return "NotFound"
	case ErrConflict:
		return "Conflict"
	case ErrProvider:
		return "ProviderError"
	case ErrPersistence:
		return "PersistenceError"
	default:
		return "Internal"
	}
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status >= 400 {
		return ae.Status
	}
	switch Kind(err) {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Details returns the caller-facing details, if any.
func Details(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Details
	}
	return ""
}

// Message returns the user-facing message, without the wrapped cause.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Message != "" {
			return ae.Message
		}
		if ae.Kind != nil {
			return ae.Kind.Error()
		}
	}
	return "internal error"
}
