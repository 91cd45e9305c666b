// Package ir defines the atom value model shared by every other package.
//
// Values are a sealed set of JSON-like variants. Floats are not representable:
// numeric comparisons must be deterministic and index keys must sort
// identically across backends.
//
// Three encodings exist for a Value:
//   - MarshalJSON / UnmarshalJSON for storage and CLI output
//   - MarshalCanonical for content-addressed identity (RFC 8785 style)
//   - EncodeKey for order-preserving index keys (bytewise comparable)
//
// ir imports nothing internal.
package ir
