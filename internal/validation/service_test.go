package validation

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/danielpatrickdp/voiceguard/internal/evidence"
	"github.com/danielpatrickdp/voiceguard/internal/intent"
	"github.com/danielpatrickdp/voiceguard/internal/readability"
	"github.com/danielpatrickdp/voiceguard/internal/rules"
	"github.com/danielpatrickdp/voiceguard/internal/safety"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) ObserveValidation(result string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[result]++
}

func ruleIDs(vs []rules.Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.RuleID)
	}
	return out
}

func findViolation(t *testing.T, vs []rules.Violation, id string) rules.Violation {
	t.Helper()
	for _, v := range vs {
		if v.RuleID == id {
			return v
		}
	}
	t.Fatalf("no violation %q in %v", id, ruleIDs(vs))
	return rules.Violation{}
}

func TestValidate_CleanText(t *testing.T) {
	svc := NewService(Options{})
	res := svc.Validate("Welcome to Jio! Your account is ready.")

	assert.True(t, res.Passed)
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.Violations)
	assert.False(t, res.Skipped())
	require.NotNil(t, res.Safety)
	assert.Equal(t, safety.RouteProceedNormal, res.Safety.Routing)
	require.NotNil(t, res.Readability)
	assert.True(t, res.Readability.MeetsTarget)
}

func TestValidate_FlagsBrandViolations(t *testing.T) {
	svc := NewService(Options{})
	res := svc.Validate("Please leverage synergistic solutions and do the needful.")

	leverage := findViolation(t, res.Violations, rules.AvoidRuleID("leverage"))
	assert.Equal(t, "complex", leverage.Category)

	needful := findViolation(t, res.Violations, rules.AvoidRuleID("do the needful"))
	assert.Equal(t, "robotic", needful.Category)

	grade := findViolation(t, res.Violations, ReadabilityRuleID)
	assert.Equal(t, rules.SeverityWarning, grade.Severity)

	assert.Less(t, res.Score, 100)
	assert.Equal(t, Score(res.Violations, StandardPenalties()), res.Score)
	assert.NotEmpty(t, res.AutoFixes)
}

func TestValidateWithIntent_GeneralChatIsSkipped(t *testing.T) {
	svc := NewService(Options{})

	cls := svc.DetectIntent("hello")
	assert.Equal(t, intent.GeneralChat, cls.Intent)

	res := svc.ValidateWithIntent("hello", "")
	assert.True(t, res.Passed)
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.Violations)
	assert.Equal(t, SkipNoValidation, res.SkippedReason)
	assert.Nil(t, res.Safety)
	assert.Nil(t, res.Readability)
	require.NotNil(t, res.Intent)
	assert.Equal(t, intent.LevelNone, res.Intent.Level)
}

func TestValidateWithIntent_UsesPromptOverText(t *testing.T) {
	svc := NewService(Options{})
	res := svc.ValidateWithIntent("Please leverage our new plan.", "Write a caption for the new plan announcement")

	require.NotNil(t, res.Intent)
	assert.Equal(t, intent.ContentGeneration, res.Intent.Intent)
	assert.False(t, res.Skipped())
	assert.NotNil(t, res.Safety)
	findViolation(t, res.Violations, rules.AvoidRuleID("leverage"))
}

func TestValidateWithIntent_StrictModeForCompliance(t *testing.T) {
	svc := NewService(Options{})
	text := "Please leverage synergistic solutions and do the needful."

	standard := svc.Validate(text)
	strict := svc.ValidateWithIntent(text, "Is this compliant with our brand voice? Please review this copy.")

	require.NotNil(t, strict.Intent)
	assert.Equal(t, intent.ComplianceRequest, strict.Intent.Intent)
	assert.Equal(t, Score(strict.Violations, StrictPenalties()), strict.Score)
	assert.Less(t, strict.Score, standard.Score)
	assert.False(t, strict.Passed, "strict mode needs 95")
}

func TestValidateWithConfig_SafetyViolations(t *testing.T) {
	svc := NewService(Options{})
	res := svc.Validate("I want to end my life")

	require.NotNil(t, res.Safety)
	assert.Equal(t, safety.RouteEmergencyResponse, res.Safety.Routing)
	v := findViolation(t, res.Violations, "safety.mentalHealth")
	assert.Equal(t, rules.SeverityError, v.Severity)
	assert.Equal(t, "mentalHealth", v.Category)
}

func TestValidateWithConfig_SafetyForContentGenerationOnly(t *testing.T) {
	svc := NewService(Options{})
	cfg := Config{CheckReadability: true, CalculateTrustScore: true}

	res := svc.ValidateWithConfig("I want to end my life", cfg, "")
	assert.Nil(t, res.Safety)

	res = svc.ValidateWithConfig("I want to end my life", cfg, intent.ContentGeneration)
	require.NotNil(t, res.Safety)
	findViolation(t, res.Violations, "safety.mentalHealth")
}

func TestValidateWithConfig_NothingEnabled(t *testing.T) {
	svc := NewService(Options{})
	res := svc.ValidateWithConfig("Please leverage synergies.", Config{}, "")
	assert.True(t, res.Passed)
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.Violations)
	assert.Empty(t, res.AutoFixes)
	assert.Nil(t, res.Safety)
}

func TestValidateWithConfig_WithoutTrustScore(t *testing.T) {
	svc := NewService(Options{})
	cfg := Config{CheckAvoidWords: true}

	res := svc.ValidateWithConfig("We guarantee the fastest network.", cfg, "")
	assert.Equal(t, 100, res.Score)
	assert.False(t, res.Passed, "an error violation fails without a score")

	res = svc.ValidateWithConfig("Please leverage this.", cfg, "")
	assert.True(t, res.Passed)
}

func TestValidate_ReadabilityWithinSlackIsInfo(t *testing.T) {
	svc := NewService(Options{}, WithAnalyzer(readability.NewAnalyzer(readability.Config{TargetGrade: 10})))
	res := svc.Validate("Please leverage synergistic solutions and do the needful.")

	v := findViolation(t, res.Violations, ReadabilityRuleID)
	assert.Equal(t, rules.SeverityInfo, v.Severity)
	assert.Equal(t, "readability", v.Category)
}

func TestValidate_MinScoreOption(t *testing.T) {
	text := "Please leverage synergistic solutions and do the needful."
	lenient := NewService(Options{MinScore: 50}).Validate(text)
	harsh := NewService(Options{MinScore: 99}).Validate(text)

	assert.Equal(t, lenient.Score, harsh.Score)
	assert.True(t, lenient.Passed)
	assert.False(t, harsh.Passed)
}

func TestValidate_ScoreAlwaysInRange(t *testing.T) {
	svc := NewService(Options{})
	texts := []string{
		"",
		"   ",
		"ok",
		"Kindly utilize and leverage synergistic paradigm shifts to do the needful, guaranteed, ASAP!!",
		"I want to end my life. I have a gun. Kill myself. Overdose on pills. Suicide.",
		"Welcome to Jio! Your account is ready.",
	}
	for i, text := range texts {
		t.Run(fmt.Sprintf("text-%d", i), func(t *testing.T) {
			res := svc.Validate(text)
			assert.GreaterOrEqual(t, res.Score, 0)
			assert.LessOrEqual(t, res.Score, 100)
		})
	}
}

func TestScore(t *testing.T) {
	errV := rules.Violation{Severity: rules.SeverityError}
	warnV := rules.Violation{Severity: rules.SeverityWarning}
	infoV := rules.Violation{Severity: rules.SeverityInfo}

	assert.Equal(t, 100, Score(nil, StandardPenalties()))
	assert.Equal(t, 78, Score([]rules.Violation{errV, warnV, infoV}, StandardPenalties()))
	assert.Equal(t, 69, Score([]rules.Violation{errV, warnV, infoV}, StrictPenalties()))

	many := make([]rules.Violation, 10)
	for i := range many {
		many[i] = errV
	}
	assert.Equal(t, 0, Score(many, StandardPenalties()))
}

func TestScore_AddingViolationNeverIncreases(t *testing.T) {
	severities := []rules.Severity{rules.SeverityError, rules.SeverityWarning, rules.SeverityInfo, "unknown"}
	for _, p := range []Penalties{StandardPenalties(), StrictPenalties()} {
		var vs []rules.Violation
		prev := Score(vs, p)
		for i := 0; i < 30; i++ {
			vs = append(vs, rules.Violation{Severity: severities[i%len(severities)]})
			next := Score(vs, p)
			assert.LessOrEqual(t, next, prev)
			prev = next
		}
	}
}

func TestValidateAndFix(t *testing.T) {
	svc := NewService(Options{})
	res, out := svc.ValidateAndFix("Kindly utilize the app in order to recieve updates.")

	assert.NotEmpty(t, res.Violations)
	assert.True(t, out.Changed())
	assert.Equal(t, "Please use the app to receive updates.", out.After)
}

func TestService_RecordsOutcomes(t *testing.T) {
	rec := &countingRecorder{}
	svc := NewService(Options{}, WithRecorder(rec))

	svc.Validate("Welcome to Jio! Your account is ready.")
	svc.ValidateWithIntent("hello", "")
	NewService(Options{MinScore: 100}, WithRecorder(rec)).Validate("Please leverage this.")

	assert.Equal(t, map[string]int{"passed": 1, "skipped": 1, "failed": 1}, rec.outcomes)
}

func TestService_MemoizesReadability(t *testing.T) {
	svc := NewService(Options{})
	text := "The cat sat on the mat."
	svc.Validate(text)
	svc.Validate(text)

	stats := svc.analyses.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestValidateMessage_RecordsEvidence(t *testing.T) {
	tracker := evidence.NewTracker()
	svc := NewService(Options{}, WithTracker(tracker))

	msg, err := svc.ValidateMessage("msg-1", "Kindly utilize the app in order to recieve updates.", "Write an sms about app updates")
	require.NoError(t, err)
	ev := msg.Evidence
	assert.Equal(t, "msg-1", ev.MessageID)
	assert.NotEmpty(t, ev.Knowledge)
	assert.Len(t, ev.AutoFixes, len(msg.Output.Applied))
	require.Len(t, ev.SafetyChecks, 1)
	assert.Equal(t, string(safety.RouteProceedNormal), ev.SafetyChecks[0].Routing)

	stored, err := tracker.Evidence("msg-1")
	require.NoError(t, err)
	assert.Equal(t, ev.EntryCount(), stored.EntryCount())
	assert.Contains(t, evidence.Summary(stored), "safety check passed")
}

func TestValidateMessage_EvidenceMatchesDeliveredText(t *testing.T) {
	svc := NewService(Options{})
	text := "Please leverage synergistic solutions and do the needful."

	msg, err := svc.ValidateMessage("m1", text, "write an email")
	require.NoError(t, err)
	assert.Equal(t, text, msg.Output.Before)
	assert.NotContains(t, strings.ToLower(msg.Output.After), "leverage")
	assert.NotContains(t, strings.ToLower(msg.Output.After), "needful")

	summary := evidence.Summary(msg.Evidence)
	assert.Contains(t, summary, "avoided 'leverage' (complex)")
	assert.Contains(t, summary, "avoided 'do the needful' (robotic)")
	assert.Contains(t, summary, "auto-fixed 'leverage' → 'use' (Simpler word)")

	remaining := make(map[string]bool)
	for _, v := range svc.Rules().CheckText(msg.Output.After) {
		remaining[strings.TrimPrefix(v.RuleID, "avoid.")] = true
	}
	for _, k := range msg.Evidence.Knowledge {
		switch k.Usage {
		case evidence.UsageAvoided:
			assert.False(t, remaining[k.Term], "avoided term %q still in output", k.Term)
		case evidence.UsageFlagged:
			assert.True(t, remaining[k.Term], "flagged term %q not in output", k.Term)
		}
	}
	applied := make([]string, len(msg.Output.Applied))
	for i, f := range msg.Output.Applied {
		applied[i] = f.Original
	}
	for _, f := range msg.Evidence.AutoFixes {
		assert.Contains(t, applied, f.Original)
	}
}

func TestValidateMessage_FlagsTermsLeftInOutput(t *testing.T) {
	svc := NewService(Options{})
	text := "We leveraged our plan for you."

	msg, err := svc.ValidateMessage("m2", text, "write an email")
	require.NoError(t, err)
	assert.Contains(t, msg.Output.After, "leveraged")
	assert.Contains(t, evidence.Summary(msg.Evidence), "flagged 'leverage' (complex)")
	assert.NotContains(t, evidence.Summary(msg.Evidence), "avoided 'leverage' (complex)")
	for _, f := range msg.Evidence.AutoFixes {
		assert.NotEqual(t, "leverage", f.Original)
	}
}

// finishingRecorder closes the active ledger mid-validation.
type finishingRecorder struct {
	tracker *evidence.Tracker
}

func (r finishingRecorder) ObserveValidation(string, int) {
	_, _ = r.tracker.FinishTracking()
}

func TestValidateMessage_ReturnsRecordError(t *testing.T) {
	tracker := evidence.NewTracker()
	svc := NewService(Options{}, WithTracker(tracker), WithRecorder(finishingRecorder{tracker: tracker}))

	_, err := svc.ValidateMessage("m3", "Please leverage this.", "write an email")
	require.Error(t, err)
	assert.ErrorIs(t, err, evidence.ErrNoActiveLedger)
	assert.Contains(t, err.Error(), "record evidence")
}

func TestService_SilentAtDefaultLogLevel(t *testing.T) {
	svc := NewService(Options{})
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	svc.Validate("Please leverage synergistic solutions and do the needful.")
	_, err := svc.ValidateMessage("quiet-1", "Kindly check your new plan details.", "write a post")
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestValidateMessage_SkippedHasNoEntries(t *testing.T) {
	svc := NewService(Options{})
	msg, err := svc.ValidateMessage("hi-1", "hello", "")
	require.NoError(t, err)
	assert.True(t, msg.Result.Skipped())
	assert.Zero(t, msg.Evidence.EntryCount())
	assert.False(t, msg.Output.Changed())
}

func TestValidateMessage_DuplicateID(t *testing.T) {
	svc := NewService(Options{})
	_, err := svc.ValidateMessage("same", "hello", "")
	require.NoError(t, err)
	_, err = svc.ValidateMessage("same", "hello", "")
	assert.ErrorIs(t, err, evidence.ErrAlreadyFinished)
}

func TestService_ConcurrentValidate(t *testing.T) {
	svc := NewService(Options{})
	want := svc.Validate("Please leverage synergistic solutions and do the needful.")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := svc.Validate("Please leverage synergistic solutions and do the needful.")
			assert.Equal(t, want.Score, got.Score)
			assert.Equal(t, ruleIDs(want.Violations), ruleIDs(got.Violations))
		}()
	}
	wg.Wait()
}
