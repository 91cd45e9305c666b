package testutil

import (
	"encoding/binary"

	"github.com/roach88/hgq/internal/graph"
)

// Seq returns the n-th fixture handle. Fixture handles sort by n, after
// every predefined handle and before every handle from graph.NewHandle, so
// result order in tests follows creation order.
func Seq(n uint64) graph.Handle {
	var h graph.Handle
	h[1] = 0x01
	binary.BigEndian.PutUint64(h[8:], n)
	return h
}
