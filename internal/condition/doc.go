// Package condition defines the query condition algebra.
//
// A Condition is immutable data: a leaf test on atoms, or a connective
// (And, Or, Map) over other conditions. Conditions carry no behaviour
// beyond rendering and, for leaves that can be checked against a single
// atom, the Predicate form used by in-memory filters. Planning lives in
// internal/plan; rewriting lives in internal/normalize.
//
// Nothing is the absorbing empty condition: an And containing it matches
// nothing, and an Or drops it.
//
// Every condition renders deterministically with String. Two conditions
// are structurally equal when Key returns the same string.
package condition
