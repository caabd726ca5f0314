package readability

import "time"

// #region config
// Config holds the analyzer thresholds.
type Config struct {
	TargetGrade      float64 // Flesch-Kincaid grade a text must not exceed
	WordsPerMinute   int     // reading speed used for ReadingTime
	LongSentence     float64 // average words per sentence that triggers a suggestion
	DenseSyllables   float64 // average syllables per word that triggers a suggestion
	ComplexWordRatio float64 // share of 3+ syllable words that triggers a suggestion
}

// DefaultConfig returns the defaults used for customer-facing copy.
func DefaultConfig() Config {
	return Config{
		TargetGrade:      8,
		WordsPerMinute:   200,
		LongSentence:     20,
		DenseSyllables:   1.6,
		ComplexWordRatio: 0.15,
	}
}

// #endregion config

// #region analysis
// Analysis is the derived readability profile of a text.
type Analysis struct {
	Sentences    int `json:"sentences"`
	Words        int `json:"words"`
	Syllables    int `json:"syllables"`
	ComplexWords int `json:"complex_words"` // 3+ syllables

	AvgSentenceLength   float64 `json:"avg_sentence_length"`
	AvgSyllablesPerWord float64 `json:"avg_syllables_per_word"`
	ComplexWordRatio    float64 `json:"complex_word_ratio"`

	FleschReadingEase  float64 `json:"flesch_reading_ease"`  // [0,100], higher is easier
	FleschKincaidGrade float64 `json:"flesch_kincaid_grade"` // >= 0
	GunningFog         float64 `json:"gunning_fog"`

	Level       string        `json:"level"`
	ReadingTime time.Duration `json:"reading_time"`

	TargetGrade float64  `json:"target_grade"`
	MeetsTarget bool     `json:"meets_target"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// #endregion analysis
