package validation

import (
	"github.com/danielpatrickdp/voiceguard/internal/evidence"
	"github.com/danielpatrickdp/voiceguard/internal/intent"
	"github.com/danielpatrickdp/voiceguard/internal/readability"
	"github.com/danielpatrickdp/voiceguard/internal/rules"
	"github.com/danielpatrickdp/voiceguard/internal/safety"
)

// Config selects which stages of a validation run.
type Config = intent.ValidationConfig

// Rule ids of violations raised outside the rule tables.
const (
	ReadabilityRuleID  = "readability.grade"
	safetyRuleIDPrefix = "safety."
	avoidRuleIDPrefix  = "avoid."
)

// Skip reasons reported on results that ran no checks.
const (
	SkipNoValidation = "intent requires no validation"
)

// #region penalties
// Penalties is the score deducted per violation severity.
type Penalties struct {
	Error   int `yaml:"error" validate:"gte=0,lte=100"`
	Warning int `yaml:"warning" validate:"gte=0,lte=100"`
	Info    int `yaml:"info" validate:"gte=0,lte=100"`
}

// For returns the penalty of a severity. Unknown severities cost nothing.
func (p Penalties) For(s rules.Severity) int {
	switch s {
	case rules.SeverityError:
		return p.Error
	case rules.SeverityWarning:
		return p.Warning
	case rules.SeverityInfo:
		return p.Info
	}
	return 0
}

// StandardPenalties are applied outside strict mode.
func StandardPenalties() Penalties { return Penalties{Error: 15, Warning: 5, Info: 2} }

// StrictPenalties are applied in strict mode.
func StrictPenalties() Penalties { return Penalties{Error: 20, Warning: 8, Info: 3} }

// #endregion penalties

// #region options
// Options tunes scoring. Zero values take defaults.
type Options struct {
	MinScore         int // pass threshold outside strict mode, default 75
	StrictMinScore   int // pass threshold in strict mode, default 95
	Standard         Penalties
	Strict           Penalties
	ReadabilitySlack float64 // grades over target still reported as info, default 2
}

// DefaultOptions returns the stock thresholds and penalties.
func DefaultOptions() Options {
	return Options{
		MinScore:         75,
		StrictMinScore:   95,
		Standard:         StandardPenalties(),
		Strict:           StrictPenalties(),
		ReadabilitySlack: 2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinScore <= 0 {
		o.MinScore = d.MinScore
	}
	if o.StrictMinScore <= 0 {
		o.StrictMinScore = d.StrictMinScore
	}
	if o.Standard == (Penalties{}) {
		o.Standard = d.Standard
	}
	if o.Strict == (Penalties{}) {
		o.Strict = d.Strict
	}
	if o.ReadabilitySlack <= 0 {
		o.ReadabilitySlack = d.ReadabilitySlack
	}
	return o
}

// #endregion options

// #region result
// Result is the aggregated verdict for one text. It is created per call and owned by the caller.
type Result struct {
	Passed           bool              `json:"passed"`
	Score            int               `json:"score"` // [0,100]
	Violations       []rules.Violation `json:"violations"`
	AutoFixes        []rules.AutoFix   `json:"auto_fixes"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
	SkippedReason    string            `json:"skipped_reason,omitempty"`

	Intent      *intent.Classification `json:"intent,omitempty"`
	Safety      *safety.Result         `json:"safety,omitempty"`
	Readability *readability.Analysis  `json:"readability,omitempty"`
}

// Skipped reports whether no check ran.
func (r Result) Skipped() bool {
	return r.SkippedReason != ""
}

// Count returns the number of violations of severity s.
func (r Result) Count(s rules.Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == s {
			n++
		}
	}
	return n
}

// Message is the outcome of ValidateMessage. Result describes the text as
// submitted; Output is the text as delivered after auto-fixes.
type Message struct {
	Result   Result
	Output   rules.FixOutcome
	Evidence evidence.GenerationEvidence
}

// #endregion result
