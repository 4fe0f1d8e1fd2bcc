// Package ingest converts the analyzer's AgentOutput + JobContext into a
// Node and orchestrates the create/update/upsert transactions that keep
// the content store, relational index, FTS, and auto-link edges
// consistent. The analyzer and job-scheduling pipeline are external
// collaborators this package only consumes, never constructs.
package ingest

import (
	"math"
	"time"

	"github.com/Whamp/sessionkg/internal/idgen"
	"github.com/Whamp/sessionkg/internal/types"
)

// BuildNode converts an AgentOutput + JobContext pair into a Node, applying
// identity reuse/derivation, previousVersions bookkeeping, derived metadata,
// and enum narrowing. When ctx.ExistingNode is set this produces
// the next version of that node's lineage; otherwise it derives a fresh
// deterministic id at version 1.
func BuildNode(output types.AgentOutput, ctx types.JobContext) *types.Node {
	n := &types.Node{}

	if ctx.ExistingNode != nil {
		existing := ctx.ExistingNode
		n.ID = existing.ID
		n.Version = existing.Version + 1
		n.PreviousVersions = append(append([]string{}, existing.PreviousVersions...), existing.VersionRef())
	} else {
		n.ID = idgen.NodeID(ctx.SessionFile, ctx.SegmentStart, ctx.SegmentEnd)
		n.Version = 1
		n.PreviousVersions = nil
	}

	n.Source = types.Source{
		SessionFile: ctx.SessionFile,
		Segment: types.Segment{
			StartEntryID: ctx.SegmentStart,
			EndEntryID:   ctx.SegmentEnd,
			EntryCount:   ctx.EntryCount,
		},
		Computer:      ctx.Computer,
		SessionID:     ctx.SessionID,
		ParentSession: ctx.ParentSession,
	}

	var decisions []types.DaemonDecision
	n.Classification = output.Classification
	if narrowed, changed := narrowType(output.Classification.Type); changed {
		decisions = append(decisions, coercionDecision("type", string(output.Classification.Type), string(narrowed)))
		n.Classification.Type = narrowed
	}

	n.Content = output.Content
	if narrowed, changed := narrowOutcome(output.Content.Outcome); changed {
		decisions = append(decisions, coercionDecision("outcome", string(output.Content.Outcome), string(narrowed)))
		n.Content.Outcome = narrowed
	}

	n.Lessons = narrowLessons(output.Lessons, &decisions)
	n.Observations = narrowObservations(output.Observations, &decisions)
	n.Semantic = output.Semantic
	n.DaemonMeta = output.DaemonMeta
	n.DaemonMeta.Decisions = append(append([]types.DaemonDecision{}, output.DaemonMeta.Decisions...), decisions...)

	n.Signals = output.Signals
	if n.Signals == "" {
		n.Signals = ctx.Signals
	}

	n.Metadata = types.Metadata{
		TokensUsed:      sumTokens(output.Observations.ModelsUsed),
		Cost:            sumCost(output.Observations.ModelsUsed),
		DurationMinutes: int(math.Round(float64(ctx.AnalysisDurationMs) / 60000)),
		Timestamp:       ctx.QueuedAt,
		AnalyzedAt:      time.Now(),
		AnalyzerVersion: ctx.AnalyzerVersion,
	}

	return n
}

func sumTokens(usages []types.ModelUsage) int {
	total := 0
	for _, u := range usages {
		total += u.TokensInput + u.TokensOutput
	}
	return total
}

func sumCost(usages []types.ModelUsage) float64 {
	total := 0.0
	for _, u := range usages {
		total += u.Cost
	}
	return total
}

// coercionDecision records an enum-narrowing coercion as a daemon
// decision. Coercion is never an error.
func coercionDecision(field, from, to string) types.DaemonDecision {
	return types.DaemonDecision{
		ID:        idgen.DecisionID(),
		Timestamp: time.Now(),
		Decision:  "narrowed " + field + " " + from + " to " + to,
		Reasoning: "unrecognized " + field + " value from analyzer output",
	}
}

func narrowType(t types.NodeType) (types.NodeType, bool) {
	switch t {
	case types.TypeCoding, types.TypeSysadmin, types.TypeResearch, types.TypePlanning,
		types.TypeDebugging, types.TypeQA, types.TypeBrainstorm, types.TypeHandoff,
		types.TypeRefactor, types.TypeDocumentation, types.TypeConfiguration, types.TypeOther:
		return t, false
	default:
		return types.TypeOther, true
	}
}

func narrowOutcome(o types.Outcome) (types.Outcome, bool) {
	switch o {
	case types.OutcomeSuccess, types.OutcomePartial, types.OutcomeFailed, types.OutcomeAbandoned:
		return o, false
	default:
		return types.OutcomeAbandoned, true
	}
}

func narrowConfidence(c types.Confidence) (types.Confidence, bool) {
	switch c {
	case types.ConfidenceLow, types.ConfidenceMedium, types.ConfidenceHigh:
		return c, false
	default:
		return types.ConfidenceLow, true
	}
}

func narrowSeverity(sv types.Severity) (types.Severity, bool) {
	switch sv {
	case types.SeverityLow, types.SeverityMedium, types.SeverityHigh:
		return sv, false
	default:
		return types.SeverityLow, true
	}
}

func narrowFrequency(f types.Frequency) (types.Frequency, bool) {
	switch f {
	case types.FrequencyOnce, types.FrequencySometimes, types.FrequencyOften, types.FrequencyAlways:
		return f, false
	default:
		return types.FrequencyOnce, true
	}
}

func narrowLessons(in types.Lessons, decisions *[]types.DaemonDecision) types.Lessons {
	if in == nil {
		return types.Lessons{}
	}
	out := make(types.Lessons, len(in))
	for level, lessons := range in {
		narrowedLevel, levelChanged := narrowLessonLevel(level)
		if levelChanged {
			*decisions = append(*decisions, coercionDecision("lesson level", string(level), string(narrowedLevel)))
		}
		copied := make([]types.Lesson, len(lessons))
		for i, l := range lessons {
			copied[i] = l
			copied[i].Level = narrowedLevel
			if narrowed, changed := narrowConfidence(l.Confidence); changed {
				*decisions = append(*decisions, coercionDecision("lesson confidence", string(l.Confidence), string(narrowed)))
				copied[i].Confidence = narrowed
			}
		}
		out[narrowedLevel] = append(out[narrowedLevel], copied...)
	}
	return out
}

func narrowLessonLevel(l types.LessonLevel) (types.LessonLevel, bool) {
	for _, valid := range types.AllLessonLevels {
		if valid == l {
			return l, false
		}
	}
	return types.LevelTask, true
}

func narrowObservations(in types.Observations, decisions *[]types.DaemonDecision) types.Observations {
	out := in
	out.ModelQuirks = make([]types.ModelQuirk, len(in.ModelQuirks))
	for i, q := range in.ModelQuirks {
		out.ModelQuirks[i] = q
		if narrowed, changed := narrowSeverity(q.Severity); changed {
			*decisions = append(*decisions, coercionDecision("quirk severity", string(q.Severity), string(narrowed)))
			out.ModelQuirks[i].Severity = narrowed
		}
		if narrowed, changed := narrowFrequency(q.Frequency); changed {
			*decisions = append(*decisions, coercionDecision("quirk frequency", string(q.Frequency), string(narrowed)))
			out.ModelQuirks[i].Frequency = narrowed
		}
	}
	return out
}
