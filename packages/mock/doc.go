// Package mock serves stateful in-memory REST resources for running suites
// offline.
//
// Each Resource gets list, create, get, replace, patch and delete routes,
// a /search endpoint and, when it has a parent field, /tree endpoints.
// Unique fields are enforced on create and update; a conflict answers 400
// with an "already exists" message. Request counts and latencies are
// exposed on /metrics.
package mock
