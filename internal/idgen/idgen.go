// Package idgen generates the two identifier families the storage engine
// uses: deterministic 16-hex node IDs and opaque prefixed IDs for
// lessons, quirks, tool errors, decisions, and edges.
//
// Node IDs hash the stable segment fingerprint with SHA-256 and keep the
// first 64 bits as lowercase hex, so the same fingerprint always maps to
// the same fixed-width 16-character ID.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// separator keeps the concatenated NodeID inputs unambiguous: without it,
// ("ab", "c") and ("a", "bc") would hash identically.
const separator = "\x1f"

// NodeID computes the deterministic 16-hex-character node identity for a
// (sessionFile, segmentStart, segmentEnd) fingerprint.
// The same triple always yields the same ID; time is never an input.
func NodeID(sessionFile, segmentStart, segmentEnd string) string {
	h := sha256.New()
	h.Write([]byte(sessionFile))
	h.Write([]byte(separator))
	h.Write([]byte(segmentStart))
	h.Write([]byte(separator))
	h.Write([]byte(segmentEnd))
	sum := h.Sum(nil)
	// First 8 bytes (64 bits) rendered as lowercase hex == 16 characters.
	return hex.EncodeToString(sum[:8])
}

// Opaque ID prefixes.
const (
	PrefixLesson    = "les_"
	PrefixQuirk     = "qrk_"
	PrefixToolError = "err_"
	PrefixDecision  = "dec_"
	PrefixEdge      = "edg_"
)

func opaque(prefix string) string {
	return prefix + uuid.NewString()
}

// LessonID generates an opaque lesson identifier.
func LessonID() string { return opaque(PrefixLesson) }

// QuirkID generates an opaque model-quirk identifier.
func QuirkID() string { return opaque(PrefixQuirk) }

// ToolErrorID generates an opaque tool-error identifier.
func ToolErrorID() string { return opaque(PrefixToolError) }

// DecisionID generates an opaque daemon-decision identifier.
func DecisionID() string { return opaque(PrefixDecision) }

// EdgeID generates an opaque edge identifier.
func EdgeID() string { return opaque(PrefixEdge) }
