// Package graph defines the data model of the atom graph and the narrow
// provider interfaces the query engine consumes.
//
// Everything in the graph is an atom identified by a Handle. An atom has a
// type (itself an atom), an optional value, and, for links, an ordered
// tuple of target handles. Types are related by subsumption links
// ([general, specific]) of the predefined SubsumesType.
//
// The engine never writes through these interfaces. Storage layout,
// transactions and index maintenance belong to the implementation behind
// Graph (see internal/store).
package graph
