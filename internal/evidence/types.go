package evidence

import (
	"errors"
	"time"
)

var (
	// ErrNoActiveLedger is returned when recording or finishing with nothing tracked.
	ErrNoActiveLedger = errors.New("evidence: no active ledger")
	// ErrNotFound is returned for an unknown message id.
	ErrNotFound = errors.New("evidence: not found")
	// ErrAlreadyFinished is returned when a message id is finished twice.
	ErrAlreadyFinished = errors.New("evidence: already finished")
)

// #region kinds
// Kind labels an evidence entry.
type Kind string

const (
	KindKnowledge     Kind = "knowledge"
	KindLearning      Kind = "learning"
	KindSemanticMatch Kind = "semantic_match"
	KindAutoFix       Kind = "auto_fix"
	KindSafety        Kind = "safety"
)

// Usage says how a knowledge entry influenced the output.
type Usage string

const (
	UsageAvoided   Usage = "avoided" // removed from the output by a fix
	UsageFlagged   Usage = "flagged" // still present in the output
	UsagePreferred Usage = "preferred"
)

// #endregion kinds

// #region entries
// KnowledgeUsed records a brand rule that shaped the output.
type KnowledgeUsed struct {
	ID         string    `json:"id"`
	Term       string    `json:"term"`
	Category   string    `json:"category"`
	Usage      Usage     `json:"usage"`
	RecordedAt time.Time `json:"recorded_at"`
}

// LearningApplied records a prior user correction that was reused.
type LearningApplied struct {
	ID         string    `json:"id"`
	Original   string    `json:"original"`
	Corrected  string    `json:"corrected"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SemanticMatch records earlier content judged similar to this output.
type SemanticMatch struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Matched    string    `json:"matched"`
	Similarity float64   `json:"similarity"` // 0..1
	RecordedAt time.Time `json:"recorded_at"`
}

// AutoFixApplied records a substitution made to the output.
type AutoFixApplied struct {
	ID          string    `json:"id"`
	Original    string    `json:"original"`
	Replacement string    `json:"replacement"`
	RuleLabel   string    `json:"rule_label"`
	Confidence  float64   `json:"confidence"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// SafetyCheck records one safety decision.
type SafetyCheck struct {
	ID         string    `json:"id"`
	Domains    []string  `json:"domains,omitempty"`
	MaxLevel   string    `json:"max_level"`
	Routing    string    `json:"routing"`
	RecordedAt time.Time `json:"recorded_at"`
}

// #endregion entries

// #region ledger
// GenerationEvidence is the ledger of one message. It is append-only while
// tracked and immutable once finished.
type GenerationEvidence struct {
	MessageID       string            `json:"message_id"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at,omitempty"`
	Knowledge       []KnowledgeUsed   `json:"knowledge,omitempty"`
	Learnings       []LearningApplied `json:"learnings,omitempty"`
	SemanticMatches []SemanticMatch   `json:"semantic_matches,omitempty"`
	AutoFixes       []AutoFixApplied  `json:"auto_fixes,omitempty"`
	SafetyChecks    []SafetyCheck     `json:"safety_checks,omitempty"`
}

// EntryCount returns the number of recorded entries.
func (g GenerationEvidence) EntryCount() int {
	return len(g.Knowledge) + len(g.Learnings) + len(g.SemanticMatches) + len(g.AutoFixes) + len(g.SafetyChecks)
}

func (g GenerationEvidence) clone() GenerationEvidence {
	out := g
	out.Knowledge = append([]KnowledgeUsed(nil), g.Knowledge...)
	out.Learnings = append([]LearningApplied(nil), g.Learnings...)
	out.SemanticMatches = append([]SemanticMatch(nil), g.SemanticMatches...)
	out.AutoFixes = append([]AutoFixApplied(nil), g.AutoFixes...)
	out.SafetyChecks = make([]SafetyCheck, len(g.SafetyChecks))
	for i, s := range g.SafetyChecks {
		s.Domains = append([]string(nil), s.Domains...)
		out.SafetyChecks[i] = s
	}
	if len(out.SafetyChecks) == 0 {
		out.SafetyChecks = nil
	}
	return out
}

// #endregion ledger
