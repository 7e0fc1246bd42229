package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainWidget = "jeamlit/widget/v1"
	DomainOutput = "jeamlit/output/v1"
)

// DerivedIDPrefix marks identities computed from (kind, label, ordinal)
// rather than supplied by the script author.
const DerivedIDPrefix = "$$WID-"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// WidgetID derives the identity of a widget declared without an explicit key.
// The same (kind, label, ordinal) always yields the same identity, so a script
// with a stable call order reproduces stable identities across reruns.
func WidgetID(kind, label string, ordinal int) string {
	obj := map[string]any{
		"kind":    kind,
		"label":   label,
		"ordinal": ordinal,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		// Only strings and ints are hashed here; failure is a programming error.
		panic(fmt.Sprintf("WidgetID: failed to marshal: %v", err))
	}

	return DerivedIDPrefix + kind + "-" + hashWithDomain(DomainWidget, canonical)[:16]
}

// Digest computes a content hash of an already-canonical document.
// Used to compare render outputs across replays.
func Digest(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("Digest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOutput, canonical), nil
}
