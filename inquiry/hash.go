package inquiry

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// Fingerprint returns the SHA-256 hex digest of the record's canonical JSON
// serialisation. Two structurally equal records always produce the same
// fingerprint, so the driver can suppress duplicate publications.
//
// A nil record fingerprints to "", which never equals a real digest.
func Fingerprint(d *Data) string {
	if d == nil {
		return ""
	}
	// encoding/json serialises struct fields in declaration order with
	// deterministic output, which is all the canonicalisation we need.
	raw, err := json.Marshal(d)
	if err != nil {
		// Data contains only strings and slices of strings; Marshal cannot
		// fail in practice. Fall back to an always-differing sentinel.
		return ""
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%x", sum)
}
