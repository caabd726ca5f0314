package intent

// #region intent
// Intent is the inferred purpose of a message.
type Intent string

const (
	ContentGeneration Intent = "contentGeneration"
	ProductInquiry    Intent = "productInquiry"
	ComplianceRequest Intent = "complianceRequest"
	Feedback          Intent = "feedback"
	GeneralChat       Intent = "generalChat"
)

// #endregion intent

// #region validation-level
// ValidationLevel is how much checking an intent calls for.
type ValidationLevel string

const (
	LevelNone     ValidationLevel = "none"
	LevelMinimal  ValidationLevel = "minimal"
	LevelStandard ValidationLevel = "standard"
	LevelFull     ValidationLevel = "full"
	LevelStrict   ValidationLevel = "strict"
)

var intentLevels = map[Intent]ValidationLevel{
	ContentGeneration: LevelFull,
	ProductInquiry:    LevelStandard,
	ComplianceRequest: LevelStrict,
	Feedback:          LevelMinimal,
	GeneralChat:       LevelNone,
}

// ValidationLevelFor returns the level an intent maps to. Unknown intents get none.
func ValidationLevelFor(i Intent) ValidationLevel {
	if l, ok := intentLevels[i]; ok {
		return l
	}
	return LevelNone
}

// RequiresValidation reports whether any check runs at this level.
func RequiresValidation(l ValidationLevel) bool {
	return ConfigFor(l).Any()
}

// #endregion validation-level

// #region validation-config
// ValidationConfig selects which orchestrator stages run.
type ValidationConfig struct {
	CheckAvoidWords     bool `json:"check_avoid_words"`
	CheckReadability    bool `json:"check_readability"`
	CalculateTrustScore bool `json:"calculate_trust_score"`
	ApplyAutoFixes      bool `json:"apply_auto_fixes"`
	StrictMode          bool `json:"strict_mode"`
}

// Any reports whether at least one check is enabled.
func (c ValidationConfig) Any() bool {
	return c.CheckAvoidWords || c.CheckReadability || c.CalculateTrustScore || c.ApplyAutoFixes
}

// FullConfig enables every check in standard mode.
func FullConfig() ValidationConfig {
	return ValidationConfig{
		CheckAvoidWords:     true,
		CheckReadability:    true,
		CalculateTrustScore: true,
		ApplyAutoFixes:      true,
	}
}

// ConfigFor returns the canonical configuration of a level.
func ConfigFor(l ValidationLevel) ValidationConfig {
	switch l {
	case LevelMinimal:
		return ValidationConfig{CheckAvoidWords: true}
	case LevelStandard, LevelFull:
		return FullConfig()
	case LevelStrict:
		c := FullConfig()
		c.StrictMode = true
		return c
	default:
		return ValidationConfig{}
	}
}

// #endregion validation-config

// #region classification
// Classification is the result of intent detection.
type Classification struct {
	Intent          Intent          `json:"intent"`
	Confidence      float64         `json:"confidence"`
	MatchedKeywords []string        `json:"matched_keywords,omitempty"`
	Level           ValidationLevel `json:"validation_level"`
}

// #endregion classification
