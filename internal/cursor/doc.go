// Package cursor provides the execution primitives of the query engine:
// bidirectional cursors over ordered handle sequences and the combinators
// that compose them.
//
// # Contract
//
// Every Cursor is positioned either before its first element, on an
// element, or after its last element. Next and Prev are valid only when
// HasNext and HasPrev report true. Current returns the element most
// recently returned by Next, Prev or a successful Seek. HasNext and HasPrev
// never change the logical position, however often they are called.
//
// HasNext and HasPrev report false when the underlying source fails; the
// failure is then available from Err. Close releases the cursor and every
// cursor it owns. Close is idempotent.
//
// # Combinators
//
// Combinators that must advance their inputs to answer HasNext are built on
// one reusable lookahead primitive (lookahead.go). The lookahead keeps the
// logical current element and at most one peeked neighbour, and realigns
// the wrapped stepper whenever iteration changes direction.
//
//   - Union: ordered merge union of two cursors, each element once.
//   - AsyncUnion: Union whose two sides advance concurrently.
//   - MergeIntersect: lockstep intersection of two ordered cursors.
//   - ZigZag: seek-driven intersection of two random access cursors.
//   - Materialize: drains a cursor into an in-memory random access cursor.
//   - Filter, FilterRA: lazy predicate filtering.
//   - Map: element projection that skips undefined projections.
//   - Pipe: nested loop over an outer key cursor and per-key inner cursors.
//   - Iterator: forward-only adapter over a producer function.
package cursor
