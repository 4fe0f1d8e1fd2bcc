package embedtext

import (
	"testing"

	"github.com/Whamp/sessionkg/internal/types"
)

func sampleNode() *types.Node {
	return &types.Node{
		Classification: types.Classification{Type: types.TypeDebugging},
		Content: types.Content{
			Summary: "chased a flaky test",
			KeyDecisions: []types.Decision{
				{What: "added retries", Why: "CI was flaky"},
			},
		},
		Lessons: types.Lessons{
			types.LevelProject: {{Summary: "retries mask root causes", Confidence: types.ConfidenceMedium}},
		},
	}
}

func TestBuildEmbeddingTextIsRich(t *testing.T) {
	text := BuildEmbeddingText(sampleNode())
	if !IsRichEmbeddingFormat(text) {
		t.Fatalf("expected rich format for %q", text)
	}
}

func TestIsRichEmbeddingFormatRequiresCurrentSentinel(t *testing.T) {
	text := BuildEmbeddingText(sampleNode())
	stale := text[:len(text)-len(EMBEDDING_FORMAT_VERSION)] + "embedfmt-v0"
	if IsRichEmbeddingFormat(stale) {
		t.Fatalf("expected stale sentinel to be rejected")
	}
}

func TestIsRichEmbeddingFormatIgnoresHeadersAlone(t *testing.T) {
	text := "[coding] summary\n\nDecisions:\n- x (why: y)\n\nLessons:\n- z"
	if IsRichEmbeddingFormat(text) {
		t.Fatalf("section headers without the sentinel must not count as rich")
	}
}

func TestSerializeDeserializeRoundTrips(t *testing.T) {
	vec := []float32{0.5, -1.25, 3, 0}
	got := Deserialize(Serialize(vec))
	if len(got) != len(vec) {
		t.Fatalf("length mismatch: %v vs %v", got, vec)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("mismatch at %d: %v vs %v", i, got, vec)
		}
	}
}
