package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/danielpatrickdp/voiceguard/internal/evidence"
	"github.com/danielpatrickdp/voiceguard/internal/replay"
	"github.com/danielpatrickdp/voiceguard/internal/rules"
	"github.com/danielpatrickdp/voiceguard/internal/safety"
	"github.com/danielpatrickdp/voiceguard/internal/validation"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// #region json

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// #endregion json

// #region text

func printResult(w io.Writer, res validation.Result) {
	verdict := "FAIL"
	if res.Passed {
		verdict = "PASS"
	}
	fmt.Fprintf(w, "%s score=%d violations=%d fixes=%d (%.2fms)\n",
		verdict, res.Score, len(res.Violations), len(res.AutoFixes), res.ProcessingTimeMs)
	if res.Intent != nil {
		fmt.Fprintf(w, "intent: %s (%.2f, %s)\n", res.Intent.Intent, res.Intent.Confidence, res.Intent.Level)
	}
	if res.Skipped() {
		fmt.Fprintf(w, "skipped: %s\n", res.SkippedReason)
		return
	}

	if len(res.Violations) > 0 {
		fmt.Fprintln(w, "\nviolations:")
		for _, v := range res.Violations {
			loc := ""
			if v.TextRange != nil {
				loc = fmt.Sprintf(" @%d", v.TextRange.Start)
			}
			fixable := ""
			if v.AutoFixable {
				fixable = " [fixable]"
			}
			fmt.Fprintf(w, "  %-7s %-28s %q%s%s\n", v.Severity, v.RuleID, v.MatchedText, loc, fixable)
			if v.Suggestion != "" {
				fmt.Fprintf(w, "          try: %s\n", v.Suggestion)
			}
		}
	}
	if len(res.AutoFixes) > 0 {
		fmt.Fprintln(w, "\nauto-fixes:")
		for _, f := range res.AutoFixes {
			fmt.Fprintf(w, "  %q -> %q (%s, %.0f%%)\n", f.Original, f.Replacement, f.RuleLabel, f.Confidence*100)
		}
	}
	if r := res.Readability; r != nil {
		fmt.Fprintf(w, "\nreadability: grade %.1f (target %.0f), ease %.1f %s, fog %.1f, %d words\n",
			r.FleschKincaidGrade, r.TargetGrade, r.FleschReadingEase, r.Level, r.GunningFog, r.Words)
	}
	if res.Safety != nil && res.Safety.Routing != safety.RouteProceedNormal {
		fmt.Fprintf(w, "safety: %s (%s, %s)\n", res.Safety.Routing, res.Safety.MaxLevel, res.Safety.TopDomain)
	}
}

func printFixOutcome(w io.Writer, o rules.FixOutcome) {
	if !o.Changed() {
		fmt.Fprintln(w, "\nno fixes applied")
		return
	}
	fmt.Fprintf(w, "\nfixed (%d applied):\n  %s\n", len(o.Applied), o.After)
}

func printEvidence(w io.Writer, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(w, "\nevidence:")
	for _, l := range lines {
		fmt.Fprintf(w, "  - %s\n", l)
	}
}

func summaryLines(ev evidence.GenerationEvidence) []string {
	if ev.MessageID == "" {
		return nil
	}
	return evidence.Summary(ev)
}

func printSafety(w io.Writer, res safety.Result) {
	fmt.Fprintf(w, "routing=%s max_level=%s", res.Routing, res.MaxLevel)
	if res.TopDomain != "" {
		fmt.Fprintf(w, " domain=%s", res.TopDomain)
	}
	fmt.Fprintln(w)
	for _, c := range res.Classifications {
		fmt.Fprintf(w, "  %-9s %-13s %s\n", c.Level, c.Domain, strings.Join(c.MatchedPatterns, ", "))
	}
	m := res.Modifications
	fmt.Fprintf(w, "max warmth: %d", m.MaxWarmth)
	if m.ToneLock != "" {
		fmt.Fprintf(w, ", tone: %s", m.ToneLock)
	}
	if m.BlockPersuasive {
		fmt.Fprint(w, ", no persuasive language")
	}
	fmt.Fprintln(w)
	if m.Disclaimer != "" {
		fmt.Fprintf(w, "disclaimer: %s\n", m.Disclaimer)
	}
	if info := m.EmergencyInfo; info != nil {
		fmt.Fprintf(w, "\n%s\n", info.ImmediateMessage)
		for _, h := range info.Helplines {
			hours := ""
			if h.Hours != "" {
				hours = " (" + h.Hours + ")"
			}
			fmt.Fprintf(w, "  %s: %s%s\n", h.Name, h.Number, hours)
		}
	}
	if res.BlockedReason != "" {
		fmt.Fprintf(w, "blocked: %s\n", res.BlockedReason)
	}
}

func printReplay(w io.Writer, path, description string, results []replay.CaseResult, s replay.Summary) {
	fmt.Fprintf(w, "%s", path)
	if description != "" {
		fmt.Fprintf(w, ": %s", description)
	}
	fmt.Fprintln(w)
	for _, r := range results {
		mark := "ok  "
		if r.Action != "match" {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  %s %-32s score=%d\n", mark, r.ID, r.Result.Score)
		for _, f := range r.Failures {
			fmt.Fprintf(w, "       %s\n", f)
		}
	}
	fmt.Fprintf(w, "  %d cases: %d matched, %d mismatched (%d passed, %d skipped)\n",
		s.TotalCases, s.Matches, s.Mismatches, s.Passed, s.Skipped)
}

// #endregion text

// #region metrics

// printMetrics dumps counters and histogram counts in name{labels} value form.
func printMetrics(w io.Writer, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		fmt.Fprintf(w, "gather metrics: %v\n", err)
		return
	}
	fmt.Fprintln(w, "\nmetrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "  %s%s %s\n", mf.GetName(), labelString(m.GetLabel()), metricValue(mf.GetType(), m))
		}
	}
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func metricValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	}
	return "?"
}

// #endregion metrics
