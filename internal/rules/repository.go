package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/danielpatrickdp/voiceguard/internal/textproc"
	"github.com/rs/zerolog/log"
)

// #region repository
// Repository owns the avoid, preferred and auto-fix tables. Tables are built
// once on first use and are read-only afterwards, so every query method is
// safe for concurrent use.
type Repository struct {
	source Source
	once   sync.Once
	tables *tables
}

type tables struct {
	source string

	avoid   map[string]AvoidTerm
	singles []AvoidTerm // sorted by term
	multis  []AvoidTerm // sorted by term
	// locate finds an avoid-term anywhere in the original text.
	locate map[string]*regexp.Regexp
	// bounded matches a multi-word avoid-term on word boundaries.
	bounded map[string]*regexp.Regexp

	preferred     map[string]PreferredTerm
	preferredKeys []string
	preferredRe   map[string]*regexp.Regexp

	fixes    map[string]AutoFixRule
	fixKeys  []string
	detectRe map[string]*regexp.Regexp // honours the rule's case sensitivity
	applyRe  map[string]*regexp.Regexp // always case-insensitive
}

// NewRepository creates a repository backed by src. A nil src means the bundled tables.
func NewRepository(src Source) *Repository {
	if src == nil {
		src = BundledSource{}
	}
	return &Repository{source: src}
}

// Load builds the tables. It runs at most once per repository; later calls are no-ops.
// A source that fails to read or validate is replaced by the bundled tables.
func (r *Repository) Load() {
	r.once.Do(func() {
		t, err := loadTables(r.source)
		if err != nil {
			log.Warn().Str("component", "rules").Str("source", r.source.Name()).Err(err).
				Msg("rule source unusable, falling back to bundled tables")
			t, err = loadTables(BundledSource{})
			if err != nil {
				log.Error().Str("component", "rules").Err(err).Msg("bundled rule tables invalid")
				t = emptyTables()
			}
		}
		r.tables = t
		log.Info().Str("component", "rules").Str("source", t.source).
			Int("avoid", len(t.avoid)).Int("preferred", len(t.preferred)).Int("fixes", len(t.fixes)).
			Msg("rule tables loaded")
	})
}

func (r *Repository) loaded() *tables {
	r.Load()
	return r.tables
}

// #endregion repository

// #region build
func emptyTables() *tables {
	return &tables{
		source:      "empty",
		avoid:       map[string]AvoidTerm{},
		locate:      map[string]*regexp.Regexp{},
		bounded:     map[string]*regexp.Regexp{},
		preferred:   map[string]PreferredTerm{},
		preferredRe: map[string]*regexp.Regexp{},
		fixes:       map[string]AutoFixRule{},
		detectRe:    map[string]*regexp.Regexp{},
		applyRe:     map[string]*regexp.Regexp{},
	}
}

func loadTables(src Source) (*tables, error) {
	f, err := src.Load()
	if err != nil {
		return nil, err
	}
	t, err := buildTables(f)
	if err != nil {
		return nil, err
	}
	t.source = src.Name()
	return t, nil
}

// buildTables validates rows and indexes them by case-folded key.
// A later row with the same key replaces an earlier one.
func buildTables(f TableFile) (*tables, error) {
	t := emptyTables()

	for i, row := range f.AvoidTerms {
		key := textproc.Key(row.Term)
		if key == "" {
			return nil, fmt.Errorf("avoid_terms[%d]: empty term", i)
		}
		if row.Severity == "" {
			row.Severity = row.Category.DefaultSeverity()
		}
		if !row.Severity.Valid() {
			return nil, fmt.Errorf("avoid_terms[%d] %q: invalid severity %q", i, row.Term, row.Severity)
		}
		row.Term = key
		t.avoid[key] = row
	}
	for key, row := range t.avoid {
		re, err := textproc.LiteralPattern(key)
		if err != nil {
			return nil, fmt.Errorf("avoid term %q: %w", key, err)
		}
		t.locate[key] = re
		if row.MultiWord() {
			b, err := textproc.WholeWordPattern(key, false)
			if err != nil {
				return nil, fmt.Errorf("avoid term %q: %w", key, err)
			}
			t.bounded[key] = b
			t.multis = append(t.multis, row)
		} else {
			t.singles = append(t.singles, row)
		}
	}
	sort.Slice(t.singles, func(i, j int) bool { return t.singles[i].Term < t.singles[j].Term })
	sort.Slice(t.multis, func(i, j int) bool { return t.multis[i].Term < t.multis[j].Term })

	for i, row := range f.PreferredTerms {
		key := textproc.Key(row.Term)
		if key == "" {
			return nil, fmt.Errorf("preferred_terms[%d]: empty term", i)
		}
		if !row.Category.valid() {
			return nil, fmt.Errorf("preferred_terms[%d] %q: invalid category %q", i, row.Term, row.Category)
		}
		row.Term = key
		t.preferred[key] = row
	}
	for key := range t.preferred {
		re, err := textproc.WholeWordPattern(key, false)
		if err != nil {
			return nil, fmt.Errorf("preferred term %q: %w", key, err)
		}
		t.preferredRe[key] = re
		t.preferredKeys = append(t.preferredKeys, key)
	}
	sort.Strings(t.preferredKeys)

	for i, row := range f.AutoFixes {
		key := textproc.Key(row.Original)
		if key == "" {
			return nil, fmt.Errorf("auto_fixes[%d]: empty original", i)
		}
		if !row.Category.valid() {
			return nil, fmt.Errorf("auto_fixes[%d] %q: invalid category %q", i, row.Original, row.Category)
		}
		if row.Confidence < 0 || row.Confidence > 1 {
			return nil, fmt.Errorf("auto_fixes[%d] %q: confidence %v outside [0,1]", i, row.Original, row.Confidence)
		}
		row.Original = strings.TrimSpace(row.Original)
		t.fixes[key] = row
	}
	for key, row := range t.fixes {
		if row.WholeWord {
			re, err := textproc.WholeWordPattern(row.Original, row.CaseSensitive)
			if err != nil {
				return nil, fmt.Errorf("auto fix %q: %w", key, err)
			}
			t.detectRe[key] = re
		}
		re, err := textproc.WholeWordPattern(row.Original, false)
		if err != nil {
			return nil, fmt.Errorf("auto fix %q: %w", key, err)
		}
		t.applyRe[key] = re
		t.fixKeys = append(t.fixKeys, key)
	}
	sort.Strings(t.fixKeys)

	return t, nil
}

// #endregion build

// #region check-text
// CheckText reports every avoid-term found in text. Single-word terms are
// matched by containment within each distinct token, multi-word terms against
// the whole text on word boundaries. Each term is reported at most once,
// located at its first occurrence. Results are ordered by position.
func (r *Repository) CheckText(text string) []Violation {
	t := r.loaded()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := textproc.Lower(text)

	seen := make(map[string]bool)
	var out []Violation
	for _, tok := range textproc.UniqueWords(text) {
		for _, term := range t.singles {
			if !strings.Contains(tok, term.Term) {
				continue
			}
			if !seen[term.Term] {
				seen[term.Term] = true
				out = append(out, t.violation(term, text, lower))
			}
			break
		}
	}
	for _, term := range t.multis {
		if seen[term.Term] || !strings.Contains(lower, term.Term) {
			continue
		}
		if !t.bounded[term.Term].MatchString(lower) {
			continue
		}
		seen[term.Term] = true
		out = append(out, t.violation(term, text, lower))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].TextRange, out[j].TextRange
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Start < b.Start
	})
	log.Trace().Str("component", "rules").Int("len", len(text)).Int("violations", len(out)).Msg("check text")
	return out
}

func (t *tables) violation(term AvoidTerm, text, lower string) Violation {
	v := Violation{
		Severity:    term.Severity,
		RuleID:      AvoidRuleID(term.Term),
		MatchedText: term.Term,
		Suggestion:  term.Suggestion,
		Category:    string(term.Category),
	}
	_, v.AutoFixable = t.fixes[term.Term]

	// Multi-word terms count only on word boundaries.
	re := t.locate[term.Term]
	if b, ok := t.bounded[term.Term]; ok {
		re = b
	}
	if loc := re.FindStringIndex(text); loc != nil {
		v.MatchedText = text[loc[0]:loc[1]]
		v.TextRange = &TextRange{Start: loc[0], End: loc[1]}
		return v
	}
	// Typographic punctuation in text; offsets into lower only line up when
	// normalization kept the byte length.
	if len(lower) == len(text) {
		if loc := re.FindStringIndex(lower); loc != nil {
			v.MatchedText = text[loc[0]:loc[1]]
			v.TextRange = &TextRange{Start: loc[0], End: loc[1]}
		}
	}
	return v
}

// #endregion check-text

// #region auto-fix
// GetAutoFixes returns one proposed fix per auto-fix rule present in text,
// ordered by rule key.
func (r *Repository) GetAutoFixes(text string) []AutoFix {
	t := r.loaded()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	normalized := textproc.Normalize(text)
	lower := strings.ToLower(normalized)

	var out []AutoFix
	for _, key := range t.fixKeys {
		rule := t.fixes[key]
		var hit bool
		switch {
		case rule.WholeWord:
			hit = t.detectRe[key].MatchString(normalized)
		case rule.CaseSensitive:
			hit = strings.Contains(normalized, rule.Original)
		default:
			hit = strings.Contains(lower, key)
		}
		if !hit {
			continue
		}
		fix := AutoFix{
			Original:    rule.Original,
			Replacement: rule.Replacement,
			Confidence:  rule.Confidence,
			RuleLabel:   rule.Category.Label(),
		}
		if _, ok := t.avoid[key]; ok {
			fix.SourceViolation = AvoidRuleID(key)
		}
		out = append(out, fix)
	}
	return out
}

// ApplyFix replaces every whole-word, case-insensitive occurrence of fix.Original.
// An occurrence that starts with a capital letter keeps it in the replacement.
func (r *Repository) ApplyFix(fix AutoFix, text string) string {
	t := r.loaded()
	if fix.Original == "" {
		return text
	}
	re, ok := t.applyRe[textproc.Key(fix.Original)]
	if !ok {
		var err error
		re, err = textproc.WholeWordPattern(fix.Original, false)
		if err != nil {
			return text
		}
	}
	return re.ReplaceAllStringFunc(text, func(match string) string {
		return matchLeadingCase(match, fix.Replacement)
	})
}

// ApplyAllFixes applies every detected fix in order. Fixes that match but
// leave the text unchanged are left out of the outcome.
func (r *Repository) ApplyAllFixes(text string) FixOutcome {
	out := FixOutcome{Before: text, After: text}
	for _, fix := range r.GetAutoFixes(text) {
		next := r.ApplyFix(fix, out.After)
		if next == out.After {
			continue
		}
		out.After = next
		out.Applied = append(out.Applied, fix)
	}
	return out
}

func matchLeadingCase(match, replacement string) string {
	m, _ := utf8.DecodeRuneInString(match)
	rr, size := utf8.DecodeRuneInString(replacement)
	if !unicode.IsUpper(m) || !unicode.IsLower(rr) {
		return replacement
	}
	return string(unicode.ToUpper(rr)) + replacement[size:]
}

// #endregion auto-fix

// #region lookups
// AvoidTerm returns the avoid-term stored under term's key.
func (r *Repository) AvoidTerm(term string) (AvoidTerm, bool) {
	a, ok := r.loaded().avoid[textproc.Key(term)]
	return a, ok
}

// AutoFixRule returns the auto-fix rule keyed by original.
func (r *Repository) AutoFixRule(original string) (AutoFixRule, bool) {
	f, ok := r.loaded().fixes[textproc.Key(original)]
	return f, ok
}

// AvoidTerms returns every avoid-term in a category, sorted by term.
// An empty category returns the whole table.
func (r *Repository) AvoidTerms(category AvoidCategory) []AvoidTerm {
	t := r.loaded()
	var out []AvoidTerm
	for _, list := range [][]AvoidTerm{t.singles, t.multis} {
		for _, a := range list {
			if category == "" || a.Category == category {
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}

// PreferredTerms returns the preferred terms of a category, sorted by term.
// An empty category returns the whole table.
func (r *Repository) PreferredTerms(category PreferredCategory) []PreferredTerm {
	t := r.loaded()
	var out []PreferredTerm
	for _, key := range t.preferredKeys {
		p := t.preferred[key]
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// FindPreferred returns the preferred terms present in text, sorted by term.
func (r *Repository) FindPreferred(text string) []PreferredTerm {
	t := r.loaded()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := textproc.Lower(text)
	var out []PreferredTerm
	for _, key := range t.preferredKeys {
		if strings.Contains(lower, key) && t.preferredRe[key].MatchString(lower) {
			out = append(out, t.preferred[key])
		}
	}
	return out
}

// TableStats counts the rows of each loaded table.
type TableStats struct {
	Source    string `json:"source"`
	Avoid     int    `json:"avoid"`
	Preferred int    `json:"preferred"`
	AutoFixes int    `json:"auto_fixes"`
}

// Stats reports table sizes and where they were loaded from.
func (r *Repository) Stats() TableStats {
	t := r.loaded()
	return TableStats{
		Source:    t.source,
		Avoid:     len(t.avoid),
		Preferred: len(t.preferred),
		AutoFixes: len(t.fixes),
	}
}

// #endregion lookups
