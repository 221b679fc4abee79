// Package suites bundles the Toolshop contract suites shipped with shopspec.
//
// The YAML suites under toolshop/ are embedded so `shopspec init` can write
// them into a new project and the tests can run them against the mock
// server. Brands is the same kind of suite assembled with the Go builder.
package suites
