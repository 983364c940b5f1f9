package model

import "time"

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

func ParseSeverity(s string) Severity {
	switch s {
	case string(SeverityCritical):
		return SeverityCritical
	case string(SeverityHigh):
		return SeverityHigh
	case string(SeverityMedium):
		return SeverityMedium
	case string(SeverityLow):
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Rank orders severities for sorting: critical first, info last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

func SeverityGTE(a, b Severity) bool { return a.Rank() <= b.Rank() }

type RuleMeta struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Tags     []string `json:"tags"`
}

// Finding is the unit of detector output. Created once by a detector;
// only Confidence changes afterwards, during merge.
type Finding struct {
	Kind           string   `json:"kind"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
	StartOffset    int      `json:"startOffset"`
	EndOffset      int      `json:"endOffset"`
	Line           int      `json:"line"`
	Snippet        string   `json:"snippet,omitempty"`
	References     []string `json:"references,omitempty"`
	Fingerprint    string   `json:"fingerprint,omitempty"`

	// Source identifies the engine/detector that produced the finding.
	// Kept for internal diagnostics, never serialized to callers.
	Source string `json:"-"`
}

// EngineResult is what one engine returns for one contract.
type EngineResult struct {
	Engine          string    `json:"engine"`
	Vulnerabilities []Finding `json:"vulnerabilities"`
	Warnings        []Finding `json:"warnings"`
}

type Statistics struct {
	TotalVulnerabilities int              `json:"totalVulnerabilities"`
	BySeverity           map[Severity]int `json:"bySeverity"`
}

// MergedResult is the deduplicated, ranked union of one or more engine runs.
type MergedResult struct {
	Vulnerabilities []Finding  `json:"vulnerabilities"`
	Warnings        []Finding  `json:"warnings"`
	Engines         []string   `json:"engines"`
	Statistics      Statistics `json:"statistics"`
	Timestamp       time.Time  `json:"timestamp"`
}

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// rank encodes the only legal ordering: queued -> processing -> terminal.
func (s JobStatus) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// CanTransition reports whether moving from s to next respects the job
// state machine. Terminal states accept no further transitions.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

type EngineMode string

const (
	EngineLocal    EngineMode = "local"
	EngineExternal EngineMode = "external"
	EngineMulti    EngineMode = "multi"
)

// Options are the caller-supplied analysis options. They participate in
// the cache fingerprint, so identical options must serialize identically.
type Options struct {
	Engine         EngineMode `json:"engine,omitempty"`
	TimeoutSeconds int        `json:"timeoutSeconds,omitempty"`
}

type AnalysisJob struct {
	ID           string        `json:"id"`
	Status       JobStatus     `json:"status"`
	Progress     int           `json:"progress"`
	CurrentStep  string        `json:"currentStep,omitempty"`
	Result       *MergedResult `json:"result,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	CacheHit     bool          `json:"cacheHit"`
	CreatedAt    time.Time     `json:"createdAt"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

type SubmitRequest struct {
	SourceCode string  `json:"sourceCode"`
	Options    Options `json:"options"`
}

type SubmitReceipt struct {
	JobID                string    `json:"jobId"`
	Status               JobStatus `json:"status"`
	EstimatedTimeSeconds int       `json:"estimatedTimeSeconds"`
}

// ProgressEvent is pushed to subscribers as a job advances. Result is
// present only on the terminal completed event.
type ProgressEvent struct {
	JobID       string        `json:"jobId"`
	Status      JobStatus     `json:"status"`
	Progress    int           `json:"progress"`
	CurrentStep string        `json:"currentStep,omitempty"`
	Error       string        `json:"error,omitempty"`
	Result      *MergedResult `json:"result,omitempty"`
}
