package cmd

import "fmt"

// Exit codes for the shopspec CLI
const (
	// ExitSuccess indicates all steps passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more steps failed
	ExitTestFailure = 1

	// ExitParseError indicates a suite that could not be parsed or validated
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates every failing step failed to reach the server
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries an exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}
