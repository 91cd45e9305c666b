// Package compiler turns CUE dataset files into store datasets.
//
// A dataset declares types, indexes, atoms and subgraphs by name:
//
//	types: {
//		Person: parts: {name: "string", age: "int"}
//		Animal: parts: name: "string"
//		Dog: {parts: name: "string", subtypeOf: ["Animal"]}
//		Owns: link: true
//	}
//	indexes: [{type: "Person", part: "name"}, {type: "Owns", target: 0}]
//	atoms: {
//		bob: {type: "Person", value: {name: "Bob", age: 40}}
//		rex: {type: "Dog", value: name: "Rex"}
//		bobRex: {type: "Owns", targets: ["bob", "rex"]}
//	}
//	subgraphs: household: ["rex"]
//
// Compilation is three steps: Parse unifies the files with the embedded
// #Dataset schema and extracts declarations, Validate checks references
// and kinds, and Build resolves names to handles derived from the names
// (TypeHandle, AtomHandle) and orders declarations the way the store
// loads them.
package compiler
