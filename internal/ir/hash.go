package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints. The version suffix allows the encoding to
// change without colliding with old fingerprints.
const (
	DomainPlan     = "quri/plan/v1"
	DomainScenario = "quri/scenario/v1"
)

// Fingerprint returns SHA256(domain || 0x00 || canonicalJSON(v)) in hex.
// The null byte keeps domain and payload from running together.
func Fingerprint(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
