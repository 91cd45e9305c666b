// Package queryspec reads queries written as YAML documents.
//
// A document names a query and holds one condition tree:
//
//	name: dogs-owned-by-bob
//	query:
//	  and:
//	    - type: Owns
//	    - ordered_link: [bob, "*"]
//
// Each condition is a mapping with a single key naming the variant. Types
// and atoms are referred to by the names a dataset declared them with, or
// by handle. Names are resolved against a graph when the document is
// resolved, not when it is parsed, so one document can be run against
// several stores.
//
// Errors in a query are reported as *ValidationError with the line of the
// offending node.
package queryspec
