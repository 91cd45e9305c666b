// Package normalize rewrites conditions into the form the planner expects.
//
// Normalize runs three passes:
//
//   - Expand rewrites sugar into primitives: type-plus becomes a disjunction
//     of exact types, links gain incidence leaves, and equality on a typed
//     value gains one part leaf per part index of the type.
//   - ToDNF distributes conjunctions over disjunctions.
//   - Simplify merges type and value leaves of each conjunction into typed
//     values and rewrites part, typed-value and ordered-link leaves into
//     index lookups where the graph has a matching index.
//
// A conjunction that asserts two different types or two different values
// simplifies to condition.Nothing.
package normalize
