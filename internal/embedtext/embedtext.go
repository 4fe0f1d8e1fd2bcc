// Package embedtext builds the text embedding providers consume from a
// Node and serializes/deserializes the resulting vectors to their on-disk
// blob form.
package embedtext

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/Whamp/sessionkg/internal/types"
)

// EMBEDDING_FORMAT_VERSION is the literal sentinel appended to
// every embedding input text. Bumping it is a schema-compatible change:
// findNodesNeedingEmbedding treats any text lacking the current sentinel
// as stale.
const EMBEDDING_FORMAT_VERSION = "embedfmt-v1"

const sentinelPrefix = "EMBEDDING_FORMAT_VERSION:"

// BuildEmbeddingText renders node into the text an EmbeddingProvider
// embeds: a `[type] summary` header, optional decisions/lessons sections,
// always terminated by the sentinel.
func BuildEmbeddingText(node *types.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", node.Classification.Type, node.Content.Summary)

	if len(node.Content.KeyDecisions) > 0 {
		b.WriteString("\n\nDecisions:")
		for _, d := range node.Content.KeyDecisions {
			fmt.Fprintf(&b, "\n- %s (why: %s)", d.What, d.Why)
		}
	}

	var lessonLines []string
	for _, level := range types.AllLessonLevels {
		for _, l := range node.Lessons[level] {
			lessonLines = append(lessonLines, l.Summary)
		}
	}
	if len(lessonLines) > 0 {
		b.WriteString("\n\nLessons:")
		for _, s := range lessonLines {
			fmt.Fprintf(&b, "\n- %s", s)
		}
	}

	fmt.Fprintf(&b, "\n\n%s%s", sentinelPrefix, EMBEDDING_FORMAT_VERSION)
	return b.String()
}

// IsRichEmbeddingFormat reports whether text carries the *current* sentinel.
// The sentinel is authoritative; the presence of a "Decisions:"/"Lessons:"
// header alone never counts.
func IsRichEmbeddingFormat(text string) bool {
	return strings.Contains(text, sentinelPrefix+EMBEDDING_FORMAT_VERSION)
}

// Serialize writes vec as little-endian float32 bytes.
func Serialize(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Deserialize reverses Serialize.
func Deserialize(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// Normalize returns a unit-length copy of vec, letting node_embeddings_vec's
// L2 distance stand in for cosine distance.
func Normalize(vec []float32) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return vec
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
