// Package output provides reporters for displaying suite results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output, streamed per step
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// Every reporter implements runner.Reporter. JSON, JUnit and TAP buffer
// results and implement runner.Flushable to write them at the end of the
// run.
package output
