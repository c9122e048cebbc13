package dispatch

import (
	"errors"
	"fmt"
)

// CommandError is a user-facing failure. Its message is posted to the
// chat verbatim, so it must never carry internal detail. Every other
// error is logged and reported generically.
type CommandError struct {
	msg string
}

func (e *CommandError) Error() string {
	return e.msg
}

// Errorf creates a user-facing error.
func Errorf(format string, args ...any) *CommandError {
	return &CommandError{msg: fmt.Sprintf(format, args...)}
}

// UserMessage returns the user-facing message carried by err, or ""
// when the error must not be shown to users.
func UserMessage(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.msg
	}
	return ""
}
