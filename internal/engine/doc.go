// Package engine is the query façade over a graph.TxManager.
//
// Every operation runs in one snapshot:
//
//  1. a snapshot is taken from the transaction manager
//  2. the condition is normalized against it
//  3. the normalized condition is compiled into a plan
//  4. the plan is executed against the same snapshot
//
// Find returns a Results cursor that owns the snapshot. Closing it closes
// the whole cursor tree and then releases the snapshot; a Results that is
// never closed holds a read transaction open.
//
// Plans do not hold storage state and may be executed again under later
// snapshots (Prepare). With WithPlanCache the engine keeps the most
// recently used plans keyed by a fingerprint of the condition. Cached
// plans reflect the type hierarchy and the indexes that existed when they
// were compiled; call ResetPlans after schema changes.
package engine
