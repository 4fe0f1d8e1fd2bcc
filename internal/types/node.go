// Package types defines the data model shared across the storage engine:
// nodes, edges, embeddings, the filter record used by listing/search, and
// the narrow AgentOutput/JobContext records the ingestion boundary accepts.
package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// NodeType classifies the kind of work a node's session segment represents.
type NodeType string

const (
	TypeCoding        NodeType = "coding"
	TypeSysadmin      NodeType = "sysadmin"
	TypeResearch      NodeType = "research"
	TypePlanning      NodeType = "planning"
	TypeDebugging     NodeType = "debugging"
	TypeQA            NodeType = "qa"
	TypeBrainstorm    NodeType = "brainstorm"
	TypeHandoff       NodeType = "handoff"
	TypeRefactor      NodeType = "refactor"
	TypeDocumentation NodeType = "documentation"
	TypeConfiguration NodeType = "configuration"
	TypeOther         NodeType = "other"
)

// Outcome is the terminal state of a session segment.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
)

// Confidence is a lesson's self-reported confidence level.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Severity grades a model quirk's impact.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Frequency grades how often a model quirk was observed. Order matters:
// the zero-indexed rank is used by listQuirks' "at least" filter semantics.
type Frequency string

const (
	FrequencyOnce      Frequency = "once"
	FrequencySometimes Frequency = "sometimes"
	FrequencyOften     Frequency = "often"
	FrequencyAlways    Frequency = "always"
)

// frequencyRank orders Frequency values for "rank >= requested" filtering.
var frequencyRank = map[Frequency]int{
	FrequencyOnce:      0,
	FrequencySometimes: 1,
	FrequencyOften:     2,
	FrequencyAlways:    3,
}

// FrequencyRank returns f's rank, defaulting unknown values to the lowest rank.
func FrequencyRank(f Frequency) int {
	if r, ok := frequencyRank[f]; ok {
		return r
	}
	return 0
}

// LessonLevel is one of the seven scopes a lesson can be recorded at.
type LessonLevel string

const (
	LevelProject  LessonLevel = "project"
	LevelTask     LessonLevel = "task"
	LevelUser     LessonLevel = "user"
	LevelModel    LessonLevel = "model"
	LevelTool     LessonLevel = "tool"
	LevelSkill    LessonLevel = "skill"
	LevelSubagent LessonLevel = "subagent"
)

// AllLessonLevels enumerates the seven lesson levels in a stable order,
// used by getLessonsByLevel to build a complete mapping even for levels
// with zero lessons.
var AllLessonLevels = []LessonLevel{
	LevelProject, LevelTask, LevelUser, LevelModel, LevelTool, LevelSkill, LevelSubagent,
}

// EdgeType classifies how two nodes relate in the graph.
type EdgeType string

const (
	EdgeContinuation EdgeType = "continuation"
	EdgeResume       EdgeType = "resume"
	EdgeFork         EdgeType = "fork"
	EdgeBranch       EdgeType = "branch"
	EdgeTreeJump     EdgeType = "tree_jump"
	EdgeCompaction   EdgeType = "compaction"
	EdgeSemantic     EdgeType = "semantic"
)

// boundaryTypes is the set of caller-supplied hints linkNodeToPredecessors
// will honor verbatim; anything outside this set falls back to EdgeContinuation.
var boundaryTypes = map[EdgeType]bool{
	EdgeContinuation: true,
	EdgeResume:       true,
	EdgeFork:         true,
	EdgeBranch:       true,
	EdgeTreeJump:     true,
	EdgeCompaction:   true,
}

// IsBoundaryType reports whether t is a valid auto-link boundary hint.
func IsBoundaryType(t EdgeType) bool {
	return boundaryTypes[t]
}

// CreatedBy identifies what created an edge.
type CreatedBy string

const (
	CreatedByBoundary CreatedBy = "boundary"
	CreatedByDaemon   CreatedBy = "daemon"
	CreatedByUser     CreatedBy = "user"
)

// Segment is the contiguous range of session-log entries a node summarizes.
type Segment struct {
	StartEntryID string `json:"startEntryId"`
	EndEntryID   string `json:"endEntryId"`
	EntryCount   int    `json:"entryCount"`
}

// Decision records one decision made during the segment.
type Decision struct {
	What                   string   `json:"what"`
	Why                    string   `json:"why"`
	AlternativesConsidered []string `json:"alternativesConsidered,omitempty"`
}

// ErrorSeen records an error encountered during the segment.
type ErrorSeen struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Resolved bool   `json:"resolved"`
}

// Lesson is a single takeaway recorded at one of the seven LessonLevels.
type Lesson struct {
	ID         string      `json:"id,omitempty"`
	Level      LessonLevel `json:"level"`
	Summary    string      `json:"summary"`
	Details    string      `json:"details,omitempty"`
	Confidence Confidence  `json:"confidence"`
	Tags       []string    `json:"tags,omitempty"`
	Actionable *bool       `json:"actionable,omitempty"`
}

// Lessons groups lessons by the seven levels they can be learned at.
type Lessons map[LessonLevel][]Lesson

// ModelUsage records token/cost accounting for one model invocation.
type ModelUsage struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	TokensInput  int     `json:"tokensInput"`
	TokensOutput int     `json:"tokensOutput"`
	CacheRead    int     `json:"cacheRead,omitempty"`
	CacheWrite   int     `json:"cacheWrite,omitempty"`
	Cost         float64 `json:"cost"`
}

// ModelQuirk records an observed model behavior quirk.
type ModelQuirk struct {
	ID          string    `json:"id,omitempty"`
	Model       string    `json:"model"`
	Observation string    `json:"observation"`
	Frequency   Frequency `json:"frequency"`
	Workaround  string    `json:"workaround,omitempty"`
	Severity    Severity  `json:"severity"`
}

// ToolUseError records a tool invocation failure.
type ToolUseError struct {
	ID         string `json:"id,omitempty"`
	Tool       string `json:"tool"`
	ErrorType  string `json:"errorType"`
	Context    string `json:"context"`
	Model      string `json:"model,omitempty"`
	WasRetried bool   `json:"wasRetried"`
}

// DaemonDecision records a decision the analyzer daemon made about how to
// process this segment (e.g. an enum-coercion it applied).
type DaemonDecision struct {
	ID          string    `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Decision    string    `json:"decision"`
	Reasoning   string    `json:"reasoning"`
	NeedsReview bool      `json:"needsReview,omitempty"`
}

// Source groups the provenance fields that identify where a node came from.
type Source struct {
	SessionFile   string  `json:"sessionFile"`
	Segment       Segment `json:"segment"`
	Computer      string  `json:"computer"`
	SessionID     string  `json:"sessionId"`
	ParentSession string  `json:"parentSession,omitempty"`
}

// Classification groups the fields that categorize a node.
type Classification struct {
	Type         NodeType `json:"type"`
	Project      string   `json:"project"`
	IsNewProject bool     `json:"isNewProject"`
	HadClearGoal bool     `json:"hadClearGoal"`
	Language     string   `json:"language,omitempty"`
	Frameworks   []string `json:"frameworks,omitempty"`
}

// Content groups a node's free-text and structured content.
type Content struct {
	Summary      string      `json:"summary"`
	Outcome      Outcome     `json:"outcome"`
	KeyDecisions []Decision  `json:"keyDecisions,omitempty"`
	FilesTouched []string    `json:"filesTouched,omitempty"`
	ToolsUsed    []string    `json:"toolsUsed,omitempty"`
	ErrorsSeen   []ErrorSeen `json:"errorsSeen,omitempty"`
}

// Observations groups model-behavior observations.
type Observations struct {
	ModelsUsed        []ModelUsage   `json:"modelsUsed,omitempty"`
	PromptingWins     []string       `json:"promptingWins,omitempty"`
	PromptingFailures []string       `json:"promptingFailures,omitempty"`
	ModelQuirks       []ModelQuirk   `json:"modelQuirks,omitempty"`
	ToolUseErrors     []ToolUseError `json:"toolUseErrors,omitempty"`
}

// Metadata groups derived and administrative bookkeeping fields.
type Metadata struct {
	TokensUsed      int       `json:"tokensUsed"`
	Cost            float64   `json:"cost"`
	DurationMinutes int       `json:"durationMinutes"`
	Timestamp       time.Time `json:"timestamp"`
	AnalyzedAt      time.Time `json:"analyzedAt"`
	AnalyzerVersion string    `json:"analyzerVersion"`
}

// Semantic groups tags/topics/related-project metadata used by search.
type Semantic struct {
	Tags            []string `json:"tags,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	RelatedProjects []string `json:"relatedProjects,omitempty"`
	Concepts        []string `json:"concepts,omitempty"`
}

// DaemonMeta groups bookkeeping the analyzer daemon attaches to a node.
type DaemonMeta struct {
	Decisions         []DaemonDecision `json:"decisions,omitempty"`
	RLMUsed           bool             `json:"rlmUsed"`
	CodemapAvailable  bool             `json:"codemapAvailable,omitempty"`
	AnalysisLog       string           `json:"analysisLog,omitempty"`
	SegmentTokenCount int              `json:"segmentTokenCount,omitempty"`
}

// Node is the unit of ingestion and storage.
type Node struct {
	ID               string   `json:"id"`
	Version          int      `json:"version"`
	PreviousVersions []string `json:"previousVersions"`

	Source Source `json:"source"`

	Classification Classification `json:"classification"`
	Content        Content        `json:"content"`
	Lessons        Lessons        `json:"lessons"`
	Observations   Observations   `json:"observations"`
	Metadata       Metadata       `json:"metadata"`
	Semantic       Semantic       `json:"semantic"`
	DaemonMeta     DaemonMeta     `json:"daemonMeta"`

	// Optional runtime fields. Signals is persisted opaquely; its
	// schema lives outside this core.
	Signals        string     `json:"signals,omitempty"`
	RelevanceScore *float64   `json:"relevanceScore,omitempty"`
	LastAccessed   *time.Time `json:"lastAccessed,omitempty"`
	Archived       bool       `json:"archived,omitempty"`
	Importance     *float64   `json:"importance,omitempty"`

	// DataFile is the content-store path this version was last persisted to;
	// populated on read, not required on write.
	DataFile string `json:"-"`

	// Extras holds fields a newer schema wrote that this build doesn't
	// model, so rewriting the record never silently drops them. Managed by
	// the content store; empty on freshly built nodes.
	Extras map[string]json.RawMessage `json:"-"`
}

// VersionRef renders the "{id}-v{version}" reference format used in
// PreviousVersions and content-store filenames.
func (n *Node) VersionRef() string {
	return versionRef(n.ID, n.Version)
}

func versionRef(id string, version int) string {
	return id + "-v" + strconv.Itoa(version)
}

// RelevanceScoreOrDefault returns the node's relevance score, defaulting to
// 1.0 when unset — used by findBridgePaths.
func (n *Node) RelevanceScoreOrDefault() float64 {
	if n.RelevanceScore == nil {
		return 1.0
	}
	return *n.RelevanceScore
}

// Edge is a typed directed relation between two nodes.
type Edge struct {
	ID           string    `json:"id"`
	SourceNodeID string    `json:"sourceNodeId"`
	TargetNodeID string    `json:"targetNodeId"`
	Type         EdgeType  `json:"type"`
	Metadata     string    `json:"metadata,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	CreatedBy    CreatedBy `json:"createdBy"`
}

// ConfidenceOrDefault returns the edge's confidence, defaulting to 1.0
// when unset.
func (e *Edge) ConfidenceOrDefault() float64 {
	if e.Confidence == nil {
		return 1.0
	}
	return *e.Confidence
}

// Embedding is a stored fixed-dimension vector for a node.
type Embedding struct {
	NodeID    string    `json:"nodeId"`
	ModelName string    `json:"modelName"`
	Dim       int       `json:"dim"`
	Vector    []float32 `json:"vector"`
	InputText string    `json:"inputText"`
}
