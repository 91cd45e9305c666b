package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for fingerprints. The version suffix allows the
// algorithm to change without colliding with persisted values.
const (
	DomainCondition = "hgq/condition/v1"
	DomainValue     = "hgq/value/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The separator keeps domain and data boundaries unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a stable hex digest of data under domain.
func Fingerprint(domain string, data []byte) string {
	return hashWithDomain(domain, data)
}

// ValueFingerprint returns the digest of v's canonical encoding.
func ValueFingerprint(v Value) (string, error) {
	b, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainValue, b), nil
}
