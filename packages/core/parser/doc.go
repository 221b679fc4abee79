// Package parser defines shopspec suites and loads them from YAML files.
//
// A suite is an ordered list of steps sharing one state store. Each step
// describes a request, the expected status and body shape, and the values
// to capture for later steps:
//
//	name: Categories
//	baseUrl: "{{baseUrl}}"
//	steps:
//	  - name: Create category
//	    request:
//	      method: POST
//	      path: /categories
//	      body: { name: Tools, slug: tools }
//	    expect:
//	      status: 201
//	      body: { id: "{{$number}}" }
//	    capture:
//	      categoryId: body.id
//
// Suites can also be assembled in Go with NewSuite and NewStep. Validate
// reports every malformed step as a *ConfigError before anything runs.
package parser
