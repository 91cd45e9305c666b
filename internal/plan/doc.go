// Package plan compiles normalized conditions into executable query plans.
//
// A Compiler resolves each condition variant to a Translator in a Registry.
// A translator produces an immutable Query node and the Metadata the
// planners use to compose it: whether the result is ordered, supports
// random access, what testing one atom in memory costs, and how large the
// result is expected to be.
//
// # Conjunctions
//
// The And planner buckets children by metadata:
//
//	ORA  ordered and random access   folded into zig-zag intersections
//	O    ordered                     folded into sorted-merge intersections
//	RA   random access               seek-based predicates
//	P    in-memory predicate         filters, cheapest first
//	W    none of the above           lazily materialized set filters
//
// Without an ordered input the planner picks a driving scan: the largest W
// child, else the costliest RA child, else a P child that may drive a scan.
// A conjunction with none fails with ErrCodeNoScannableCondition.
//
// # Disjunctions
//
// The Or planner folds ordered unions over its children, sorting any child
// whose result is unordered. Options.ParallelOr selects the async union.
//
// Queries are stateless. Every Execute builds a fresh cursor tree, so one
// plan may run concurrently under different snapshots.
package plan
