package replay

import (
	"fmt"
	"slices"

	"github.com/danielpatrickdp/voiceguard/internal/validation"
)

// #region types

// Validator is the part of validation.Service a replay needs.
type Validator interface {
	Validate(text string) validation.Result
	ValidateWithIntent(text, prompt string) validation.Result
}

// CaseResult captures the outcome of replaying one case.
type CaseResult struct {
	ID       string
	Action   string // "match" | "mismatch"
	Failures []string
	Result   validation.Result
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalCases int
	Matches    int
	Mismatches int
	Skipped    int // cases whose validation was skipped by intent
	Passed     int // cases whose validation passed
}

// OK reports whether every case matched.
func (s Summary) OK() bool {
	return s.Mismatches == 0
}

// #endregion types

// #region replay

// Replay runs every case through v and compares the verdict with its expectations.
func Replay(v Validator, cases []Case) []CaseResult {
	results := make([]CaseResult, 0, len(cases))
	for _, c := range cases {
		var res validation.Result
		if c.Prompt != "" || c.UseIntent {
			res = v.ValidateWithIntent(c.Text, c.Prompt)
		} else {
			res = v.Validate(c.Text)
		}

		failures := check(c.Expect, res)
		action := "match"
		if len(failures) > 0 {
			action = "mismatch"
		}
		results = append(results, CaseResult{ID: c.ID, Action: action, Failures: failures, Result: res})
	}
	return results
}

func check(e Expect, res validation.Result) []string {
	var out []string
	if e.Passed != nil && res.Passed != *e.Passed {
		out = append(out, fmt.Sprintf("passed=%t, want %t (score %d)", res.Passed, *e.Passed, res.Score))
	}
	if e.Skipped != nil && res.Skipped() != *e.Skipped {
		out = append(out, fmt.Sprintf("skipped=%t, want %t", res.Skipped(), *e.Skipped))
	}
	if e.MinScore != nil && res.Score < *e.MinScore {
		out = append(out, fmt.Sprintf("score=%d, want >= %d", res.Score, *e.MinScore))
	}
	if e.MaxScore != nil && res.Score > *e.MaxScore {
		out = append(out, fmt.Sprintf("score=%d, want <= %d", res.Score, *e.MaxScore))
	}
	if e.Routing != "" {
		switch {
		case res.Safety == nil:
			out = append(out, fmt.Sprintf("routing=<not run>, want %s", e.Routing))
		case string(res.Safety.Routing) != e.Routing:
			out = append(out, fmt.Sprintf("routing=%s, want %s", res.Safety.Routing, e.Routing))
		}
	}
	if e.Intent != "" {
		switch {
		case res.Intent == nil:
			out = append(out, fmt.Sprintf("intent=<not detected>, want %s", e.Intent))
		case string(res.Intent.Intent) != e.Intent:
			out = append(out, fmt.Sprintf("intent=%s, want %s", res.Intent.Intent, e.Intent))
		}
	}

	ids := make([]string, 0, len(res.Violations))
	for _, v := range res.Violations {
		ids = append(ids, v.RuleID)
	}
	for _, want := range e.Violations {
		if !slices.Contains(ids, want) {
			out = append(out, fmt.Sprintf("missing violation %s", want))
		}
	}
	for _, unwanted := range e.Absent {
		if slices.Contains(ids, unwanted) {
			out = append(out, fmt.Sprintf("unexpected violation %s", unwanted))
		}
	}
	return out
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []CaseResult) Summary {
	s := Summary{TotalCases: len(results)}
	for _, r := range results {
		switch r.Action {
		case "match":
			s.Matches++
		case "mismatch":
			s.Mismatches++
		}
		if r.Result.Skipped() {
			s.Skipped++
		}
		if r.Result.Passed {
			s.Passed++
		}
	}
	return s
}

// Options converts the fixture config into service options.
func (fc FixtureConfig) Options() validation.Options {
	return validation.Options{MinScore: fc.MinScore, StrictMinScore: fc.StrictMinScore}
}

// #endregion replay
