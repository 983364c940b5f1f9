package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint computes the cache key for one analysis input: a sha256
// over the source bytes and the canonical serialization of options.
// Key-insertion order of options never affects the result.
func Fingerprint(sourceCode string, options any) string {
	h := sha256.New()
	h.Write([]byte(sourceCode))
	if options != nil {
		if canon, err := CanonicalJSON(options); err == nil {
			h.Write(canon)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FindingFingerprint computes a stable identity hash for one finding.
func FindingFingerprint(kind string, start, end int, context string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%s", kind, start, end, context)
	return hex.EncodeToString(h.Sum(nil))
}
