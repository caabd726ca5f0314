package evidence

import (
	"fmt"
	"strings"
)

// #region summary
// Summary flattens a ledger into human-readable influence lines, grouped by
// kind in a fixed order.
func Summary(ev GenerationEvidence) []string {
	var out []string
	for _, k := range ev.Knowledge {
		switch k.Usage {
		case UsagePreferred:
			out = append(out, fmt.Sprintf("used preferred wording '%s' (%s)", k.Term, k.Category))
		case UsageFlagged:
			out = append(out, fmt.Sprintf("flagged '%s' (%s)", k.Term, k.Category))
		default:
			out = append(out, fmt.Sprintf("avoided '%s' (%s)", k.Term, k.Category))
		}
	}
	for _, l := range ev.Learnings {
		out = append(out, fmt.Sprintf("applied your correction: '%s' → '%s'", l.Original, l.Corrected))
	}
	for _, m := range ev.SemanticMatches {
		out = append(out, fmt.Sprintf("matched similar content '%s' (%.0f%% similar)", m.Matched, m.Similarity*100))
	}
	for _, f := range ev.AutoFixes {
		out = append(out, fmt.Sprintf("auto-fixed '%s' → '%s' (%s)", f.Original, f.Replacement, f.RuleLabel))
	}
	for _, s := range ev.SafetyChecks {
		if len(s.Domains) == 0 {
			out = append(out, "safety check passed")
			continue
		}
		out = append(out, fmt.Sprintf("safety check: %s (%s) → %s", strings.Join(s.Domains, ", "), s.MaxLevel, s.Routing))
	}
	return out
}

// #endregion summary
