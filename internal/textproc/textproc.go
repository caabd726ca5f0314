package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// #region normalize
// quoteFolder maps typographic quotes and dashes onto their ASCII forms so
// "don’t" and "don't" match the same rule.
var quoteFolder = strings.NewReplacer(
	"‘", "'", "’", "'", "‛", "'",
	"“", `"`, "”", `"`,
	"–", "-", "—", "-",
	"\u00a0", " ",
)

var folder = cases.Fold()

// Normalize applies NFKC composition and folds typographic punctuation.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return quoteFolder.Replace(norm.NFKC.String(text))
}

// Lower returns the normalized, lowercased form used for substring matching.
// Byte offsets into the result only line up with the input for ASCII text.
func Lower(text string) string {
	return strings.ToLower(Normalize(text))
}

// Key returns the case-folded lookup key for a rule term.
func Key(term string) string {
	return folder.String(strings.TrimSpace(Normalize(term)))
}

// #endregion normalize

// #region words
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-'
}

// Words splits lowercased text into word-boundary tokens, in order, with duplicates.
// Leading and trailing apostrophes and hyphens are trimmed from each token.
func Words(text string) []string {
	raw := strings.FieldsFunc(Lower(text), func(r rune) bool { return !isWordRune(r) })
	out := raw[:0]
	for _, w := range raw {
		w = strings.Trim(w, "'-")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// UniqueWords returns the distinct tokens of text in first-seen order.
func UniqueWords(text string) []string {
	words := Words(text)
	seen := make(map[string]bool, len(words))
	unique := words[:0]
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		unique = append(unique, w)
	}
	return unique
}

// WordSet returns the distinct tokens of text as a set.
func WordSet(text string) map[string]struct{} {
	words := Words(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Fields returns the non-empty whitespace-delimited tokens of text.
func Fields(text string) []string {
	return strings.Fields(text)
}

// #endregion words

// #region stopwords
// stopwords contains common English words excluded from keyword matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "i": true, "my": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "me": true,
}

// IsStopword reports whether w is excluded from keyword matching.
func IsStopword(w string) bool {
	return stopwords[w]
}

// Keywords splits text into unique lowercase non-stopword tokens.
func Keywords(text string) []string {
	var tokens []string
	for _, w := range UniqueWords(text) {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// SharedCount returns how many members of words are present in set.
func SharedCount(words []string, set map[string]bool) (int, []string) {
	var matched []string
	for _, w := range words {
		if set[w] {
			matched = append(matched, w)
		}
	}
	return len(matched), matched
}

// #endregion stopwords

// #region patterns
func isASCIIWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// WholeWordPattern compiles a regexp matching term on word boundaries.
// Boundaries are only asserted on sides where term begins or ends with a word character,
// so terms like "e.g." still match.
func WholeWordPattern(term string, caseSensitive bool) (*regexp.Regexp, error) {
	term = strings.TrimSpace(term)
	var b strings.Builder
	if !caseSensitive {
		b.WriteString("(?i)")
	}
	if term != "" && isASCIIWordByte(term[0]) {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(term))
	if term != "" && isASCIIWordByte(term[len(term)-1]) {
		b.WriteString(`\b`)
	}
	return regexp.Compile(b.String())
}

// LiteralPattern compiles a case-insensitive regexp matching term anywhere.
func LiteralPattern(term string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + regexp.QuoteMeta(strings.TrimSpace(term)))
}

// #endregion patterns
