// Package runner executes shopspec suites.
//
// Steps run strictly in declaration order against one suite-scoped state
// store. Every step is attempted: a failing step is recorded and the next
// one runs anyway. Failures are typed (status mismatch, shape mismatch,
// unresolved reference, timeout) and reported to the registered Reporters
// as each step finishes.
//
// A suite is validated before its first request is sent; a malformed suite
// returns a *parser.ConfigError and nothing runs.
package runner
