package plan

import (
	"fmt"
	"math"
)

// Unbounded is the SizeUB of a result with no known upper bound.
const Unbounded = math.MaxInt64

// Metadata describes how a condition's result can be accessed and what it
// costs. The And planner buckets conjuncts by these facts.
type Metadata struct {
	// Ordered results come out in handle order.
	Ordered bool
	// RandomAccess results support Seek.
	RandomAccess bool
	// PredicateCost estimates storage accesses to test one atom in memory.
	// -1 means the condition cannot be used as a predicate; 0 means testing
	// needs no storage access.
	PredicateCost float64
	// PredicateOnly conditions must never drive a scan.
	PredicateOnly bool

	SizeLB       int64
	SizeUB       int64
	SizeExpected int64
}

// Predicate reports whether the condition can be used as an in-memory test.
func (m Metadata) Predicate() bool { return m.PredicateCost >= 0 }

// ExpectedSize returns SizeExpected, or an estimate from the bounds when
// it is unknown. It returns -1 when nothing is known.
func (m Metadata) ExpectedSize() int64 {
	if m.SizeExpected >= 0 {
		return m.SizeExpected
	}
	if m.SizeUB != Unbounded {
		return m.SizeLB + (m.SizeUB-m.SizeLB)/2
	}
	return -1
}

func (m Metadata) String() string {
	access := "scan"
	switch {
	case m.Ordered && m.RandomAccess:
		access = "ordered+random"
	case m.Ordered:
		access = "ordered"
	case m.RandomAccess:
		access = "random"
	}
	return fmt.Sprintf("%s cost=%g size=%d", access, m.PredicateCost, m.ExpectedSize())
}

// EmptyMeta is the metadata of a result known to be empty.
func EmptyMeta() Metadata {
	return Metadata{Ordered: true, RandomAccess: true}
}

// MysteryMeta is the metadata of a result nothing is known about.
func MysteryMeta() Metadata {
	return Metadata{PredicateCost: -1, SizeUB: Unbounded, SizeExpected: -1}
}

// OrderedMeta is MysteryMeta with ordered results.
func OrderedMeta() Metadata {
	m := MysteryMeta()
	m.Ordered = true
	return m
}

// RandomAccessMeta is MysteryMeta with random access results.
func RandomAccessMeta() Metadata {
	m := MysteryMeta()
	m.RandomAccess = true
	return m
}

// ORAMeta is MysteryMeta with ordered, random access results.
func ORAMeta() Metadata {
	m := MysteryMeta()
	m.Ordered, m.RandomAccess = true, true
	return m
}

// exact sets all size estimates to n.
func (m Metadata) exact(n int64) Metadata {
	m.SizeLB, m.SizeUB, m.SizeExpected = n, n, n
	return m
}

// cost sets the predicate cost.
func (m Metadata) cost(c float64) Metadata {
	m.PredicateCost = c
	return m
}
