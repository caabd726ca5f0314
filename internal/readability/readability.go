package readability

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// #region analyzer
// Analyzer scores text against a target reading grade.
type Analyzer struct {
	config Config
}

// NewAnalyzer creates an analyzer. Zero fields in config take their defaults.
func NewAnalyzer(config Config) *Analyzer {
	def := DefaultConfig()
	if config.TargetGrade <= 0 {
		config.TargetGrade = def.TargetGrade
	}
	if config.WordsPerMinute <= 0 {
		config.WordsPerMinute = def.WordsPerMinute
	}
	if config.LongSentence <= 0 {
		config.LongSentence = def.LongSentence
	}
	if config.DenseSyllables <= 0 {
		config.DenseSyllables = def.DenseSyllables
	}
	if config.ComplexWordRatio <= 0 {
		config.ComplexWordRatio = def.ComplexWordRatio
	}
	return &Analyzer{config: config}
}

// TargetGrade returns the grade a text must not exceed.
func (a *Analyzer) TargetGrade() float64 {
	return a.config.TargetGrade
}

// Analyze computes counts, the three readability formulas and suggestions.
// Empty text is treated as trivially readable.
func (a *Analyzer) Analyze(text string) Analysis {
	words := strings.Fields(text)
	out := Analysis{
		Sentences:   CountSentences(text),
		Words:       len(words),
		TargetGrade: a.config.TargetGrade,
	}
	if out.Words == 0 {
		out.FleschReadingEase = 100
		out.Level = LevelFor(out.FleschReadingEase)
		out.MeetsTarget = true
		return out
	}

	for _, w := range words {
		n := CountSyllables(w)
		out.Syllables += n
		if n >= 3 {
			out.ComplexWords++
		}
	}

	asl := float64(out.Words) / float64(out.Sentences)
	asw := float64(out.Syllables) / float64(out.Words)
	out.AvgSentenceLength = asl
	out.AvgSyllablesPerWord = asw
	out.ComplexWordRatio = float64(out.ComplexWords) / float64(out.Words)

	out.FleschReadingEase = FleschReadingEase(asl, asw)
	out.FleschKincaidGrade = FleschKincaidGrade(asl, asw)
	out.GunningFog = GunningFog(asl, out.ComplexWordRatio)
	out.Level = LevelFor(out.FleschReadingEase)
	out.ReadingTime = readingTime(out.Words, a.config.WordsPerMinute)

	out.MeetsTarget = out.FleschKincaidGrade <= a.config.TargetGrade
	if !out.MeetsTarget {
		out.Suggestions = a.suggestions(out)
	}
	return out
}

func (a *Analyzer) suggestions(an Analysis) []string {
	var s []string
	if an.AvgSentenceLength > a.config.LongSentence {
		s = append(s, fmt.Sprintf("Shorten sentences: they average %.0f words, aim for under %.0f.",
			an.AvgSentenceLength, a.config.LongSentence))
	}
	if an.AvgSyllablesPerWord > a.config.DenseSyllables {
		s = append(s, fmt.Sprintf("Use shorter words: %.1f syllables per word on average.", an.AvgSyllablesPerWord))
	}
	if an.ComplexWordRatio > a.config.ComplexWordRatio {
		s = append(s, fmt.Sprintf("Swap some of the %d long words (3+ syllables) for everyday ones.", an.ComplexWords))
	}
	if len(s) == 0 {
		s = append(s, fmt.Sprintf("Simplify the wording to reach grade %.0f (currently %.1f).",
			a.config.TargetGrade, an.FleschKincaidGrade))
	}
	return s
}

// #endregion analyzer

// #region formulas
// FleschReadingEase is 206.835 - 1.015*ASL - 84.6*ASW, clamped to [0,100].
func FleschReadingEase(asl, asw float64) float64 {
	return clamp(206.835-1.015*asl-84.6*asw, 0, 100)
}

// FleschKincaidGrade is 0.39*ASL + 11.8*ASW - 15.59, floored at 0.
func FleschKincaidGrade(asl, asw float64) float64 {
	return math.Max(0, 0.39*asl+11.8*asw-15.59)
}

// GunningFog is 0.4*(ASL + 100*complexRatio).
func GunningFog(asl, complexRatio float64) float64 {
	return 0.4 * (asl + 100*complexRatio)
}

// LevelFor maps a reading-ease score to its conventional label.
func LevelFor(ease float64) string {
	switch {
	case ease >= 90:
		return "very easy"
	case ease >= 80:
		return "easy"
	case ease >= 70:
		return "fairly easy"
	case ease >= 60:
		return "standard"
	case ease >= 50:
		return "fairly difficult"
	case ease >= 30:
		return "difficult"
	default:
		return "very difficult"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func readingTime(words, wpm int) time.Duration {
	return time.Duration(float64(words) / float64(wpm) * float64(time.Minute)).Round(time.Second)
}

// #endregion formulas

// #region counting
// CountSentences counts maximal runs of '.', '!' and '?'. Text without
// terminal punctuation still counts as one sentence.
func CountSentences(text string) int {
	n := 0
	inRun := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inRun {
				n++
			}
			inRun = true
			continue
		}
		inRun = false
	}
	if n == 0 {
		return 1
	}
	return n
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

// CountSyllables estimates syllables by counting vowel groups, dropping a
// silent trailing 'e'. Every word has at least one syllable.
func CountSyllables(word string) int {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	clean := b.String()

	count := 0
	prevVowel := false
	for _, r := range clean {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(clean, "e") && count > 1 {
		count--
	}
	if count < 1 {
		return 1
	}
	return count
}

// #endregion counting
