// Package exit carries a process outcome (message, stream, code) from
// argument parsing and setup back to main without calling os.Exit deep in
// the call stack.
package exit

import (
	"fmt"
	"io"
	"os"
)

// Result is a pending process termination: where to write, what to say, and
// the code to exit with.
type Result struct {
	Output   io.Writer
	ExitCode int
	Message  string
}

// Print writes the message to the result's output stream.
func (r *Result) Print() {
	fmt.Fprint(r.Output, r.Message)
}

// Success builds a zero-code result writing to stdout, used for help output.
func Success(message string) *Result {
	return &Result{
		Output:   os.Stdout,
		ExitCode: 0,
		Message:  message,
	}
}

// Error builds a code-1 result writing to stderr.
func Error(message string) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: 1,
		Message:  message,
	}
}

// Errorf is Error with formatting.
func Errorf(format string, a ...any) *Result {
	return Error(fmt.Sprintf(format, a...))
}
