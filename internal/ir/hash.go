package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPayload = "rewrite/payload/v1"
	DomainTrace   = "rewrite/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadHash returns the content hash of a payload.
// Two values with equal payloads hash equally whatever their history.
func PayloadHash(payload string) string {
	return hashWithDomain(DomainPayload, []byte(payload))
}

// TraceHash fingerprints a value together with its full history.
// Identical runs produce identical trace hashes, which is how replays
// and golden comparisons check determinism.
func TraceHash(v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("TraceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, data), nil
}

// MustTraceHash is like TraceHash but panics on error.
// Use only in tests or when the value is known to be valid.
func MustTraceHash(v Value) string {
	h, err := TraceHash(v)
	if err != nil {
		panic(err)
	}
	return h
}
