package types

import "time"

// AgentOutput is the non-identity portion of a Node, as produced by the
// analyzer. The core treats the analyzer as an external
// collaborator: it only consumes this record, never constructs one.
type AgentOutput struct {
	Classification Classification
	Content        Content
	Lessons        Lessons
	Observations   Observations
	Semantic       Semantic
	DaemonMeta     DaemonMeta
	Signals        string
}

// JobContext is the per-segment job metadata the analyzer pipeline supplies
// alongside an AgentOutput.
type JobContext struct {
	SessionFile        string
	SegmentStart       string
	SegmentEnd         string
	QueuedAt           time.Time
	Computer           string
	SessionID          string
	ParentSession      string
	EntryCount         int
	AnalysisDurationMs int64
	AnalyzerVersion    string
	ExistingNode       *Node
	Signals            string
}

// EmbeddingProvider is the external embedding model collaborator.
type EmbeddingProvider interface {
	Embed(batch []string) ([][]float32, error)
	ModelName() string
	Dimensions() int
}

// NodeReader reads a full Node back from its content-store data file,
// used by the embedding backfill to rebuild embedding text.
type NodeReader interface {
	Read(dataFile string) (*Node, error)
}
