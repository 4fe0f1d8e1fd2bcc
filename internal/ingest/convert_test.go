package ingest

import (
	"testing"
	"time"

	"github.com/Whamp/sessionkg/internal/types"
)

func baseCtx() types.JobContext {
	return types.JobContext{
		SessionFile:        "/s.jsonl",
		SegmentStart:       "e1",
		SegmentEnd:         "e10",
		QueuedAt:           time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Computer:           "laptop",
		SessionID:          "sess-1",
		EntryCount:         9,
		AnalysisDurationMs: 90_000,
		AnalyzerVersion:    "v1",
	}
}

func TestBuildNodeFreshIdentity(t *testing.T) {
	out := types.AgentOutput{
		Classification: types.Classification{Type: types.TypeCoding},
		Content:        types.Content{Summary: "did stuff", Outcome: types.OutcomeSuccess},
	}
	n := BuildNode(out, baseCtx())

	if n.Version != 1 {
		t.Fatalf("version = %d, want 1", n.Version)
	}
	if len(n.PreviousVersions) != 0 {
		t.Fatalf("previousVersions = %v, want empty", n.PreviousVersions)
	}
	if n.Metadata.DurationMinutes != 2 {
		t.Fatalf("durationMinutes = %d, want 2 (90000ms rounds to 1.5 -> 2)", n.Metadata.DurationMinutes)
	}
	if !n.Metadata.Timestamp.Equal(baseCtx().QueuedAt) {
		t.Fatalf("timestamp not copied from QueuedAt")
	}

	n2 := BuildNode(out, baseCtx())
	if n.ID != n2.ID {
		t.Fatalf("nodeId not deterministic: %s != %s", n.ID, n2.ID)
	}
}

func TestBuildNodeReanalysisBumpsVersion(t *testing.T) {
	existing := BuildNode(types.AgentOutput{
		Classification: types.Classification{Type: types.TypeCoding},
		Semantic:       types.Semantic{Tags: []string{"coding"}},
	}, baseCtx())
	existing.DataFile = "2026/01/" + existing.ID + "-v1.json"

	ctx := baseCtx()
	ctx.ExistingNode = existing
	next := BuildNode(types.AgentOutput{
		Semantic: types.Semantic{Tags: []string{"database"}},
	}, ctx)

	if next.ID != existing.ID {
		t.Fatalf("id changed across reanalysis: %s != %s", next.ID, existing.ID)
	}
	if next.Version != 2 {
		t.Fatalf("version = %d, want 2", next.Version)
	}
	want := existing.VersionRef()
	if len(next.PreviousVersions) != 1 || next.PreviousVersions[0] != want {
		t.Fatalf("previousVersions = %v, want [%s]", next.PreviousVersions, want)
	}
	if len(next.Semantic.Tags) != 1 || next.Semantic.Tags[0] != "database" {
		t.Fatalf("tags = %v, want [database]", next.Semantic.Tags)
	}
}

func TestBuildNodeEnumNarrowing(t *testing.T) {
	out := types.AgentOutput{
		Classification: types.Classification{Type: types.NodeType("bogus")},
		Content:        types.Content{Outcome: types.Outcome("weird")},
		Lessons: types.Lessons{
			types.LevelProject: {{Summary: "x", Confidence: types.Confidence("huh")}},
		},
		Observations: types.Observations{
			ModelQuirks: []types.ModelQuirk{{Model: "gpt", Observation: "o", Severity: types.Severity("extreme"), Frequency: types.Frequency("constantly")}},
		},
	}
	n := BuildNode(out, baseCtx())

	if n.Classification.Type != types.TypeOther {
		t.Fatalf("type = %s, want other", n.Classification.Type)
	}
	if n.Content.Outcome != types.OutcomeAbandoned {
		t.Fatalf("outcome = %s, want abandoned", n.Content.Outcome)
	}
	if n.Lessons[types.LevelProject][0].Confidence != types.ConfidenceLow {
		t.Fatalf("confidence = %s, want low", n.Lessons[types.LevelProject][0].Confidence)
	}
	q := n.Observations.ModelQuirks[0]
	if q.Severity != types.SeverityLow || q.Frequency != types.FrequencyOnce {
		t.Fatalf("quirk not narrowed: severity=%s frequency=%s", q.Severity, q.Frequency)
	}
	if len(n.DaemonMeta.Decisions) != 5 {
		t.Fatalf("decisions recorded = %d, want 5 (type, outcome, lesson confidence, quirk severity, quirk frequency)", len(n.DaemonMeta.Decisions))
	}
}

func TestBuildNodeDerivedMetadataIsAuthoritative(t *testing.T) {
	out := types.AgentOutput{
		Observations: types.Observations{
			ModelsUsed: []types.ModelUsage{
				{TokensInput: 100, TokensOutput: 50, Cost: 0.02},
				{TokensInput: 10, TokensOutput: 5, Cost: 0.001},
			},
		},
	}
	n := BuildNode(out, baseCtx())
	if n.Metadata.TokensUsed != 165 {
		t.Fatalf("tokensUsed = %d, want 165", n.Metadata.TokensUsed)
	}
	if n.Metadata.Cost < 0.0209 || n.Metadata.Cost > 0.0211 {
		t.Fatalf("cost = %v, want ~0.021", n.Metadata.Cost)
	}
}
