package manager

import "errors"

// startFailedError wraps the error returned by a module's Start.
type startFailedError struct {
	module string
	err    error
}

func (e startFailedError) Error() string { return "start " + e.module + ": " + e.err.Error() }
func (e startFailedError) Unwrap() error { return e.err }

// ErrStartFailed constructs a startFailedError.
func ErrStartFailed(module string, err error) error {
	return startFailedError{module: module, err: err}
}

// IsStartFailed reports whether err indicates a module failed to start.
func IsStartFailed(err error) bool {
	var e startFailedError
	return errors.As(err, &e)
}

// FailedModule returns the name of the module that failed to start, if err
// is a start failure.
func FailedModule(err error) (string, bool) {
	var e startFailedError
	if errors.As(err, &e) {
		return e.module, true
	}
	return "", false
}
