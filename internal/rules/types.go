package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// #region severity
// Severity ranks how strongly a violation counts against the trust score.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// #endregion severity

// #region avoid-category
// AvoidCategory groups avoid-terms by why the brand voice rejects them.
type AvoidCategory string

const (
	CategoryJargon       AvoidCategory = "jargon"
	CategoryComplex      AvoidCategory = "complex"
	CategoryRobotic      AvoidCategory = "robotic"
	CategoryNegative     AvoidCategory = "negative"
	CategoryCorporate    AvoidCategory = "corporate"
	CategoryExclusionary AvoidCategory = "exclusionary"
	CategorySlang        AvoidCategory = "slang"
	CategoryFiller       AvoidCategory = "filler"
	CategoryOverpromise  AvoidCategory = "overpromise"
	CategoryFear         AvoidCategory = "fear"
)

type categoryInfo struct {
	severity    Severity
	description string
}

// avoidCategories holds the default severity and description per category.
var avoidCategories = map[AvoidCategory]categoryInfo{
	CategoryJargon:       {SeverityWarning, "technical jargon the reader may not know"},
	CategoryComplex:      {SeverityInfo, "a longer word where a short one works"},
	CategoryRobotic:      {SeverityWarning, "stiff, scripted phrasing"},
	CategoryNegative:     {SeverityWarning, "negative framing"},
	CategoryCorporate:    {SeverityWarning, "corporate buzzword"},
	CategoryExclusionary: {SeverityError, "language that excludes or stereotypes people"},
	CategorySlang:        {SeverityInfo, "informal slang"},
	CategoryFiller:       {SeverityInfo, "filler that adds no meaning"},
	CategoryOverpromise:  {SeverityError, "a promise the brand cannot guarantee"},
	CategoryFear:         {SeverityWarning, "pressure or fear-based urgency"},
}

// AvoidCategories returns every known avoid category.
func AvoidCategories() []AvoidCategory {
	return []AvoidCategory{
		CategoryJargon, CategoryComplex, CategoryRobotic, CategoryNegative, CategoryCorporate,
		CategoryExclusionary, CategorySlang, CategoryFiller, CategoryOverpromise, CategoryFear,
	}
}

// DefaultSeverity returns the severity applied when a term does not override it.
func (c AvoidCategory) DefaultSeverity() Severity {
	if info, ok := avoidCategories[c]; ok {
		return info.severity
	}
	return SeverityInfo
}

// Description returns a short human-readable explanation of the category.
func (c AvoidCategory) Description() string {
	return avoidCategories[c].description
}

// UnmarshalYAML rejects unknown categories.
func (c *AvoidCategory) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if _, ok := avoidCategories[AvoidCategory(s)]; !ok {
		return fmt.Errorf("invalid avoid category: %q", s)
	}
	*c = AvoidCategory(s)
	return nil
}

// #endregion avoid-category

// #region preferred-category
// PreferredCategory groups preferred terms by the effect they have on the reader.
type PreferredCategory string

const (
	PreferredWarmth      PreferredCategory = "warmth"
	PreferredClarity     PreferredCategory = "clarity"
	PreferredEmpowerment PreferredCategory = "empowerment"
	PreferredInclusion   PreferredCategory = "inclusion"
	PreferredAction      PreferredCategory = "action"
	PreferredReassurance PreferredCategory = "reassurance"
)

func (c PreferredCategory) valid() bool {
	switch c {
	case PreferredWarmth, PreferredClarity, PreferredEmpowerment, PreferredInclusion, PreferredAction, PreferredReassurance:
		return true
	}
	return false
}

// #endregion preferred-category

// #region fix-category
// FixCategory labels the kind of substitution an auto-fix performs.
type FixCategory string

const (
	FixSimplification FixCategory = "simplification"
	FixTone           FixCategory = "tone"
	FixClarity        FixCategory = "clarity"
	FixInclusivity    FixCategory = "inclusivity"
	FixGrammar        FixCategory = "grammar"
)

var fixLabels = map[FixCategory]string{
	FixSimplification: "Simpler word",
	FixTone:           "Warmer tone",
	FixClarity:        "Clearer phrasing",
	FixInclusivity:    "Inclusive language",
	FixGrammar:        "Grammar",
}

// Label returns the display label for the category.
func (c FixCategory) Label() string {
	if l, ok := fixLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c FixCategory) valid() bool {
	_, ok := fixLabels[c]
	return ok
}

// #endregion fix-category

// #region terms
// AvoidTerm is a word or phrase the brand voice rejects.
type AvoidTerm struct {
	Term       string        `yaml:"term"`
	Category   AvoidCategory `yaml:"category"`
	Severity   Severity      `yaml:"severity,omitempty"`
	Suggestion string        `yaml:"suggestion,omitempty"`
}

// MultiWord reports whether the term spans more than one word.
func (t AvoidTerm) MultiWord() bool {
	for i := 0; i < len(t.Term); i++ {
		if t.Term[i] == ' ' {
			return true
		}
	}
	return false
}

// PreferredTerm is wording the brand voice encourages.
type PreferredTerm struct {
	Term          string            `yaml:"term"`
	Category      PreferredCategory `yaml:"category"`
	EmotionalGoal string            `yaml:"goal"`
}

// AutoFixRule is a deterministic original -> replacement substitution.
type AutoFixRule struct {
	Original      string      `yaml:"original"`
	Replacement   string      `yaml:"replacement"`
	Category      FixCategory `yaml:"category"`
	Confidence    float64     `yaml:"confidence"`
	CaseSensitive bool        `yaml:"case_sensitive,omitempty"`
	WholeWord     bool        `yaml:"whole_word"`
}

// #endregion terms

// #region results
// TextRange is a half-open byte range [Start, End) into the checked text.
type TextRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Violation is a single rule match. Callers own the value; it is never mutated after creation.
type Violation struct {
	Severity    Severity   `json:"severity"`
	RuleID      string     `json:"rule_id"`
	MatchedText string     `json:"matched_text"`
	Suggestion  string     `json:"suggestion,omitempty"`
	Category    string     `json:"category"`
	TextRange   *TextRange `json:"text_range,omitempty"`
	AutoFixable bool       `json:"auto_fixable"`
}

// AutoFix is a proposed, not yet applied edit.
type AutoFix struct {
	Original        string  `json:"original"`
	Replacement     string  `json:"replacement"`
	Confidence      float64 `json:"confidence"`
	RuleLabel       string  `json:"rule_label"`
	SourceViolation string  `json:"source_violation,omitempty"` // rule id of the matching avoid-term, if any
}

// FixOutcome is the result of applying every detected fix to a text.
type FixOutcome struct {
	Before  string    `json:"before"`
	After   string    `json:"after"`
	Applied []AutoFix `json:"applied"`
}

// Changed reports whether any fix altered the text.
func (o FixOutcome) Changed() bool {
	return o.Before != o.After
}

// #endregion results

// #region rule-ids
// AvoidRuleID returns the rule id reported for an avoid-term match.
func AvoidRuleID(term string) string {
	return "avoid." + term
}

// #endregion rule-ids
