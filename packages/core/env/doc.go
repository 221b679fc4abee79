// Package env resolves {{ }} references in suites.
//
// It provides functionality for:
//   - Loading .env files and named environments from the config file
//   - Interpolating {{key}} references against the suite's state store
//     and variables
//   - Reading OS environment variables with {{$NAME}}
//   - Calling built-in functions such as {{fake('department')}}
//
// Unlike plain templating, an unresolved reference is an error: a step that
// reads a key no earlier step wrote must fail rather than send a literal
// "{{key}}" to the API.
package env
