// Package assertions matches HTTP responses against expected status codes
// and partial JSON shape templates.
//
// A shape template is a tree of variants evaluated by one recursive matcher:
//   - Literal: exact equality, numbers compared numerically
//   - TypePlaceholder: any value of a JSON type ({{$string}}, {{$number}}, ...)
//   - Contains / Pattern: string checks ({{$contains text}}, {{$regexp re}})
//   - Object: listed fields only, extra actual fields are ignored
//   - List: per-index element templates
//   - ListWildcard: one template every element must match
//
// Templates are usually decoded from YAML with FromValue. An optional JSON
// Schema file is validated with gojsonschema.
package assertions
