package evidence

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// #region tracker
// Sink persists finished ledgers.
type Sink interface {
	Save(ev GenerationEvidence) error
}

// Tracker holds one in-flight ledger and the history of finished ones.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	sink    Sink
	active  *GenerationEvidence
	history map[string]GenerationEvidence
	order   []string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSink persists every finished ledger to s.
func WithSink(s Sink) Option {
	return func(t *Tracker) { t.sink = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now, history: make(map[string]GenerationEvidence)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartTracking opens a fresh ledger for messageID. An unfinished ledger is discarded.
func (t *Tracker) StartTracking(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil {
		log.Warn().Str("component", "evidence").Str("message_id", t.active.MessageID).
			Msg("discarding unfinished evidence ledger")
	}
	t.active = &GenerationEvidence{MessageID: messageID, StartedAt: t.now().UTC()}
}

// Active returns the id of the in-flight ledger, if any.
func (t *Tracker) Active() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return "", false
	}
	return t.active.MessageID, true
}

// record runs fn against the active ledger under the lock.
func (t *Tracker) record(fn func(g *GenerationEvidence, id string, at time.Time)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return ErrNoActiveLedger
	}
	fn(t.active, uuid.NewString(), t.now().UTC())
	return nil
}

// #endregion tracker

// #region record
// RecordKnowledgeUsed appends a brand rule that shaped the output.
func (t *Tracker) RecordKnowledgeUsed(term, category string, usage Usage) error {
	return t.record(func(g *GenerationEvidence, id string, at time.Time) {
		g.Knowledge = append(g.Knowledge, KnowledgeUsed{ID: id, Term: term, Category: category, Usage: usage, RecordedAt: at})
	})
}

// RecordLearningApplied appends a reused user correction.
func (t *Tracker) RecordLearningApplied(original, corrected string) error {
	return t.record(func(g *GenerationEvidence, id string, at time.Time) {
		g.Learnings = append(g.Learnings, LearningApplied{ID: id, Original: original, Corrected: corrected, RecordedAt: at})
	})
}

// RecordSemanticMatch appends similar earlier content.
func (t *Tracker) RecordSemanticMatch(query, matched string, similarity float64) error {
	return t.record(func(g *GenerationEvidence, id string, at time.Time) {
		g.SemanticMatches = append(g.SemanticMatches, SemanticMatch{
			ID: id, Query: query, Matched: matched, Similarity: similarity, RecordedAt: at,
		})
	})
}

// RecordAutoFix appends an applied substitution.
func (t *Tracker) RecordAutoFix(original, replacement, label string, confidence float64) error {
	return t.record(func(g *GenerationEvidence, id string, at time.Time) {
		g.AutoFixes = append(g.AutoFixes, AutoFixApplied{
			ID: id, Original: original, Replacement: replacement, RuleLabel: label, Confidence: confidence, RecordedAt: at,
		})
	})
}

// RecordSafetyCheck appends a safety decision.
func (t *Tracker) RecordSafetyCheck(domains []string, maxLevel, routing string) error {
	return t.record(func(g *GenerationEvidence, id string, at time.Time) {
		g.SafetyChecks = append(g.SafetyChecks, SafetyCheck{
			ID: id, Domains: append([]string(nil), domains...), MaxLevel: maxLevel, Routing: routing, RecordedAt: at,
		})
	})
}

// #endregion record

// #region finish
// FinishTracking timestamps the active ledger, moves it into history and
// clears the in-flight slot. A message id can be finished once. The ledger is retained even when the sink fails;
// the sink error is returned alongside it.
func (t *Tracker) FinishTracking() (GenerationEvidence, error) {
	t.mu.Lock()
	if t.active == nil {
		t.mu.Unlock()
		return GenerationEvidence{}, ErrNoActiveLedger
	}
	ev := t.active.clone()
	ev.FinishedAt = t.now().UTC()
	t.active = nil
	if _, seen := t.history[ev.MessageID]; seen {
		t.mu.Unlock()
		return GenerationEvidence{}, fmt.Errorf("message %s: %w", ev.MessageID, ErrAlreadyFinished)
	}
	t.order = append(t.order, ev.MessageID)
	t.history[ev.MessageID] = ev
	sink := t.sink
	t.mu.Unlock()

	log.Trace().Str("component", "evidence").Str("message_id", ev.MessageID).
		Int("entries", ev.EntryCount()).Msg("evidence finalized")

	if sink != nil {
		if err := sink.Save(ev.clone()); err != nil {
			log.Warn().Str("component", "evidence").Str("message_id", ev.MessageID).Err(err).Msg("persist evidence failed")
			return ev.clone(), fmt.Errorf("persist evidence %s: %w", ev.MessageID, err)
		}
	}
	return ev.clone(), nil
}

// Evidence returns the finished ledger of messageID.
func (t *Tracker) Evidence(messageID string) (GenerationEvidence, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev, ok := t.history[messageID]
	if !ok {
		return GenerationEvidence{}, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return ev.clone(), nil
}

// History returns every finished ledger in finish order.
func (t *Tracker) History() []GenerationEvidence {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]GenerationEvidence, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.history[id].clone())
	}
	return out
}

// #endregion finish
