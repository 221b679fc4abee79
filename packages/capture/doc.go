// Package capture extracts values from HTTP responses into the state store
// so later steps can reference them.
//
// Values come from:
//   - the response body, by gjson path (body.data.id) or JSONPath ($.data[0].id)
//   - a response header
//   - the status code
//
// A capture that finds nothing is an error: the step that declared it fails
// instead of a later step tripping over an unresolved reference.
package capture
