// Package builtin provides the functions available inside {{ }} references
// in suite files.
//
// Available functions:
//   - uuid(): Random UUID v4
//   - now(), date(layout), timestamp(), timestampMs(): Current time
//   - random(min, max): Random integer in range
//   - randomString(length), randomEmail(): Random text
//   - fake(kind): Plausible fake data (department, product, name, email...)
//   - slug(text): URL slug of text, e.g. "Power Tools" -> "power-tools"
//   - base64(value), urlEncode(value), lower(value), upper(value)
//
// Functions are invoked as {{name(args)}}. A bare argument names a stored
// value and is substituted before the call, so {{slug(categoryName)}} slugs
// the value captured earlier. Literal text is quoted: {{fake('department')}}.
package builtin
