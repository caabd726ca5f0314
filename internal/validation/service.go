package validation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/danielpatrickdp/voiceguard/internal/cache"
	"github.com/danielpatrickdp/voiceguard/internal/evidence"
	"github.com/danielpatrickdp/voiceguard/internal/intent"
	"github.com/danielpatrickdp/voiceguard/internal/readability"
	"github.com/danielpatrickdp/voiceguard/internal/rules"
	"github.com/danielpatrickdp/voiceguard/internal/safety"
	"github.com/rs/zerolog/log"
)

// #region service

// Recorder receives the outcome of each validation: "passed", "failed" or "skipped".
type Recorder interface {
	ObserveValidation(result string, score int)
}

// Service is the validation entry point. It fans a text out to the rule
// repository, safety gate and readability analyzer and aggregates a score.
// It is safe for concurrent use.
type Service struct {
	opts       Options
	rules      *rules.Repository
	gate       *safety.Gate
	analyzer   *readability.Analyzer
	classifier *intent.Classifier
	analyses   *cache.Cache[string, readability.Analysis]
	recorder   Recorder
	tracker    *evidence.Tracker

	// serializes ValidateMessage; the tracker holds one in-flight ledger
	messageMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithRules replaces the bundled rule repository.
func WithRules(r *rules.Repository) Option { return func(s *Service) { s.rules = r } }

// WithGate replaces the default safety gate.
func WithGate(g *safety.Gate) Option { return func(s *Service) { s.gate = g } }

// WithAnalyzer replaces the default readability analyzer.
func WithAnalyzer(a *readability.Analyzer) Option { return func(s *Service) { s.analyzer = a } }

// WithClassifier replaces the default intent classifier.
func WithClassifier(c *intent.Classifier) Option { return func(s *Service) { s.classifier = c } }

// WithAnalysisCache memoizes readability analyses in c.
func WithAnalysisCache(c *cache.Cache[string, readability.Analysis]) Option {
	return func(s *Service) { s.analyses = c }
}

// WithRecorder reports every validation outcome to r.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithTracker records evidence for ValidateMessage into t.
func WithTracker(t *evidence.Tracker) Option { return func(s *Service) { s.tracker = t } }

// NewService wires a service. Collaborators not supplied by options are built
// with their defaults; the rule tables are loaded before NewService returns.
func NewService(opts Options, options ...Option) *Service {
	s := &Service{opts: opts.withDefaults()}
	for _, o := range options {
		o(s)
	}
	if s.rules == nil {
		s.rules = rules.NewRepository(nil)
	}
	if s.gate == nil {
		s.gate = safety.NewGate(safety.DefaultGateConfig())
	}
	if s.analyzer == nil {
		s.analyzer = readability.NewAnalyzer(readability.DefaultConfig())
	}
	if s.classifier == nil {
		s.classifier = intent.NewClassifier()
	}
	if s.analyses == nil {
		s.analyses = cache.New[string, readability.Analysis](cache.Options{Name: "readability", MaxSize: 256})
	}
	if s.tracker == nil {
		s.tracker = evidence.NewTracker()
	}
	s.rules.Load()
	return s
}

// Rules returns the rule repository in use.
func (s *Service) Rules() *rules.Repository { return s.rules }

// Gate returns the safety gate in use.
func (s *Service) Gate() *safety.Gate { return s.gate }

// Tracker returns the evidence tracker in use.
func (s *Service) Tracker() *evidence.Tracker { return s.tracker }

// #endregion service

// #region validate

// Validate runs every check in standard mode.
func (s *Service) Validate(text string) Result {
	return s.ValidateWithConfig(text, intent.FullConfig(), "")
}

// DetectIntent classifies the purpose of text.
func (s *Service) DetectIntent(text string) intent.Classification {
	return s.classifier.Classify(text)
}

// ValidateWithIntent picks the checks from the intent of prompt, or of text
// when prompt is empty. Intents that need no validation pass immediately.
func (s *Service) ValidateWithIntent(text, prompt string) Result {
	start := time.Now()
	source := prompt
	if strings.TrimSpace(source) == "" {
		source = text
	}
	cls := s.classifier.Classify(source)

	if !intent.RequiresValidation(cls.Level) {
		res := Result{
			Passed:           true,
			Score:            100,
			Violations:       []rules.Violation{},
			AutoFixes:        []rules.AutoFix{},
			SkippedReason:    SkipNoValidation,
			Intent:           &cls,
			ProcessingTimeMs: elapsedMs(start),
		}
		s.observe(res)
		log.Trace().Str("component", "validation").Str("intent", string(cls.Intent)).Msg("validation skipped")
		return res
	}

	res := s.ValidateWithConfig(text, intent.ConfigFor(cls.Level), cls.Intent)
	res.Intent = &cls
	return res
}

// ValidateWithConfig runs the stages enabled in cfg. forIntent may be empty;
// content generation always gets a safety check.
func (s *Service) ValidateWithConfig(text string, cfg Config, forIntent intent.Intent) Result {
	start := time.Now()
	res := Result{Violations: []rules.Violation{}, AutoFixes: []rules.AutoFix{}}

	if cfg.CheckAvoidWords {
		res.Violations = append(res.Violations, s.rules.CheckText(text)...)
	}
	if cfg.ApplyAutoFixes {
		res.AutoFixes = append(res.AutoFixes, s.rules.GetAutoFixes(text)...)
	}
	if cfg.CheckAvoidWords || forIntent == intent.ContentGeneration {
		sr := s.gate.Classify(text)
		res.Safety = &sr
		res.Violations = append(res.Violations, safetyViolations(sr)...)
	}
	if cfg.CheckReadability {
		an := s.analyze(text)
		res.Readability = &an
		if v, ok := s.readabilityViolation(an); ok {
			res.Violations = append(res.Violations, v)
		}
	}

	penalties, threshold := s.opts.Standard, s.opts.MinScore
	if cfg.StrictMode {
		penalties, threshold = s.opts.Strict, s.opts.StrictMinScore
	}
	if cfg.CalculateTrustScore {
		res.Score = Score(res.Violations, penalties)
		res.Passed = res.Score >= threshold
	} else {
		res.Score = 100
		res.Passed = res.Count(rules.SeverityError) == 0
	}
	res.ProcessingTimeMs = elapsedMs(start)

	s.observe(res)
	log.Trace().Str("component", "validation").Int("chars", len(text)).Int("score", res.Score).
		Bool("passed", res.Passed).Int("violations", len(res.Violations)).Bool("strict", cfg.StrictMode).
		Msg("validated")
	return res
}

// ValidateAndFix validates text and applies every detected auto-fix.
func (s *Service) ValidateAndFix(text string) (Result, rules.FixOutcome) {
	return s.Validate(text), s.rules.ApplyAllFixes(text)
}

// #endregion validate

// #region scoring

// Score returns 100 minus the penalties of violations, clamped to [0,100].
func Score(violations []rules.Violation, p Penalties) int {
	score := 100
	for _, v := range violations {
		score -= p.For(v.Severity)
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func safetyViolations(sr safety.Result) []rules.Violation {
	var out []rules.Violation
	for _, c := range sr.Classifications {
		if c.Level < safety.LevelModerate {
			continue
		}
		sev := rules.SeverityWarning
		if c.Level == safety.LevelCritical {
			sev = rules.SeverityError
		}
		out = append(out, rules.Violation{
			Severity:    sev,
			RuleID:      safetyRuleIDPrefix + string(c.Domain),
			MatchedText: strings.Join(c.MatchedPatterns, ", "),
			Suggestion:  c.SuggestedDisclaimer,
			Category:    string(c.Domain),
		})
	}
	return out
}

func (s *Service) readabilityViolation(an readability.Analysis) (rules.Violation, bool) {
	if an.MeetsTarget {
		return rules.Violation{}, false
	}
	sev := rules.SeverityInfo
	if an.FleschKincaidGrade > an.TargetGrade+s.opts.ReadabilitySlack {
		sev = rules.SeverityWarning
	}
	suggestion := "use shorter sentences and simpler words"
	if len(an.Suggestions) > 0 {
		suggestion = an.Suggestions[0]
	}
	return rules.Violation{
		Severity:    sev,
		RuleID:      ReadabilityRuleID,
		MatchedText: fmt.Sprintf("grade %.1f (target %.0f)", an.FleschKincaidGrade, an.TargetGrade),
		Suggestion:  suggestion,
		Category:    "readability",
	}, true
}

// analyze memoizes readability per text. The fetch cannot fail.
func (s *Service) analyze(text string) readability.Analysis {
	an, err := s.analyses.GetOrFetch(context.Background(), text, func(context.Context) (readability.Analysis, error) {
		return s.analyzer.Analyze(text), nil
	})
	if err != nil {
		return s.analyzer.Analyze(text)
	}
	return an
}

func (s *Service) observe(res Result) {
	if s.recorder == nil {
		return
	}
	outcome := "failed"
	switch {
	case res.Skipped():
		outcome = "skipped"
	case res.Passed:
		outcome = "passed"
	}
	s.recorder.ObserveValidation(outcome, res.Score)
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// #endregion scoring

// #region message

// ValidateMessage validates a generated message, applies its auto-fixes and
// records which rules, fixes and safety checks shaped the delivered output
// under messageID. Terms a fix removed are recorded as avoided; terms still
// present in the output are recorded as flagged. A skipped message is
// delivered unchanged with an empty ledger.
func (s *Service) ValidateMessage(messageID, text, prompt string) (Message, error) {
	s.messageMu.Lock()
	defer s.messageMu.Unlock()

	s.tracker.StartTracking(messageID)
	res := s.ValidateWithIntent(text, prompt)
	msg := Message{Result: res, Output: rules.FixOutcome{Before: text, After: text}}

	var recErr error
	keep := func(err error) {
		if err != nil && recErr == nil {
			recErr = err
		}
	}

	if !res.Skipped() {
		msg.Output = s.rules.ApplyAllFixes(text)
		remaining := make(map[string]bool)
		for _, v := range s.rules.CheckText(msg.Output.After) {
			remaining[v.RuleID] = true
		}
		for _, v := range res.Violations {
			term, ok := strings.CutPrefix(v.RuleID, avoidRuleIDPrefix)
			if !ok {
				continue
			}
			usage := evidence.UsageAvoided
			if remaining[v.RuleID] {
				usage = evidence.UsageFlagged
			}
			keep(s.tracker.RecordKnowledgeUsed(term, v.Category, usage))
		}
		for _, p := range s.rules.FindPreferred(msg.Output.After) {
			keep(s.tracker.RecordKnowledgeUsed(p.Term, string(p.Category), evidence.UsagePreferred))
		}
		for _, f := range msg.Output.Applied {
			keep(s.tracker.RecordAutoFix(f.Original, f.Replacement, f.RuleLabel, f.Confidence))
		}
	}
	if res.Safety != nil {
		var domains []string
		for _, c := range res.Safety.Classifications {
			if !slices.Contains(domains, string(c.Domain)) {
				domains = append(domains, string(c.Domain))
			}
		}
		keep(s.tracker.RecordSafetyCheck(domains, res.Safety.MaxLevel.String(), string(res.Safety.Routing)))
	}

	ev, err := s.tracker.FinishTracking()
	msg.Evidence = ev
	if recErr != nil {
		return msg, fmt.Errorf("record evidence: %w", recErr)
	}
	if err != nil {
		return msg, fmt.Errorf("finish evidence: %w", err)
	}
	return msg, nil
}

// #endregion message
