package cli

import "errors"

var ErrUsage = errors.New("cli usage error")

// usageError is an error the user can fix by changing flags, config or
// input. cause, when set, stays reachable through errors.As.
type usageError struct {
	msg   string
	cause error
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func wrapUsageError(msg string, cause error) error {
	return usageError{msg: msg, cause: cause}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

func (e usageError) Unwrap() error {
	return e.cause
}
