package contract

import "errors"

// ErrSessionNotFound is returned when no backend holds the requested session.
var ErrSessionNotFound = errors.New("session not found")

// GuardError carries a rejection produced by a TransitionFunc. Stores pass it
// through untouched so it is never mistaken for a backend failure.
type GuardError struct {
	Err error
}

func (e *GuardError) Error() string {
	return e.Err.Error()
}

func (e *GuardError) Unwrap() error {
	return e.Err
}

// IsDomainError reports whether err is a caller-facing outcome rather than a
// storage failure.
func IsDomainError(err error) bool {
	if errors.Is(err, ErrSessionNotFound) {
		return true
	}
	var guardErr *GuardError
	return errors.As(err, &guardErr)
}
