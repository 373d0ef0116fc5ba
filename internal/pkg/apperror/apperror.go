package apperror

// Kind classifies an AppError so callers can branch on the category
// without comparing messages.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindPastTime   Kind = "past_time"
	KindConflict   Kind = "slot_conflict"
	KindEditWindow Kind = "edit_window"
	KindForbidden  Kind = "forbidden"
	KindState      Kind = "invalid_state"
	KindAuth       Kind = "unauthorized"
	KindDuplicate  Kind = "duplicate"
)

// AppError is a custom error type that includes an HTTP status code and a stable kind.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Kind    Kind   // Category surfaced to clients as "code"
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports sentinel equality so that a wrapped copy produced by Wrap still
// matches the sentinel it was derived from.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Kind == t.Kind && e.Message == t.Message
}

// New creates a new AppError with a status code, kind and message.
func New(code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *AppError, err error) *AppError {
	return &AppError{
		Code:    base.Code,
		Kind:    base.Kind,
		Message: base.Message,
		Err:     err,
	}
}
