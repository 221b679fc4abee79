// Package cmd implements the shopspec CLI commands using Cobra.
//
// Available commands:
//   - run: Execute contract suites against a Toolshop deployment
//   - validate: Check suites without sending requests
//   - list: Display the steps of each suite
//   - init: Create a project with a config file and the bundled suites
//   - mock: Serve an in-memory Toolshop for offline runs
//   - history: Inspect runs recorded with --history
//   - version: Show shopspec version information
package cmd
