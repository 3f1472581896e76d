package module

import "errors"

// invalidSettingError signals a setting whose value cannot be applied.
type invalidSettingError struct {
	name   string
	reason string
}

func (e invalidSettingError) Error() string {
	return "invalid setting " + e.name + ": " + e.reason
}

// ErrInvalidSetting constructs an invalidSettingError.
func ErrInvalidSetting(name, reason string) error {
	return invalidSettingError{name: name, reason: reason}
}

// IsInvalidSetting reports whether err (or anything it wraps) is an invalid
// setting error.
func IsInvalidSetting(err error) bool {
	var e invalidSettingError
	return errors.As(err, &e)
}
