package shell

import (
	"errors"
	"fmt"
	"strconv"
)

// ExitCode represents a process exit status code.
// Exit codes are in the range 0-255 on POSIX systems.
// The zero value (0) means success.
type ExitCode int

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// ExitError is returned when a command ran to completion with a non-zero status.
type ExitError struct {
	Command string
	Code    ExitCode
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %s", e.Command, e.Code)
}

// CodeOf maps an error to the process exit status it should produce.
// nil is 0, an *ExitError carries its own code, anything else is 1.
func CodeOf(err error) ExitCode {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
