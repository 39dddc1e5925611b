package service

import "errors"

// Error kinds.  Handlers match them with errors.Is and render Error.Msg.
var (
    ErrValidation         = errors.New("validation failed")
    ErrInvalidCredentials = errors.New("invalid credentials")
    ErrNotFound           = errors.New("not found")
    ErrInvalidState       = errors.New("invalid state")
    ErrConflict           = errors.New("conflict")
)

// Error is a kinded failure carrying a message that is safe to show to the
// caller.  Msg never reveals whether a booking is absent or owned by
// someone else.
type Error struct {
    Kind error
    Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
    return &Error{Kind: kind, Msg: msg}
}

// Message returns the caller-facing text of err, or fallback when err is not
// a service *Error.
func Message(err error, fallback string) string {
    var se *Error
    if errors.As(err, &se) && se.Msg != "" {
        return se.Msg
    }
    return fallback
}
