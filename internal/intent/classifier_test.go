package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantIntent Intent
		wantLevel  ValidationLevel
	}{
		{"greeting", "hello", GeneralChat, LevelNone},
		{"empty", "", GeneralChat, LevelNone},
		{"bare question", "what?", GeneralChat, LevelNone},
		{"content", "Write a caption for our new 5G plan launch", ContentGeneration, LevelFull},
		{"content-draft", "Can you draft an SMS announcement?", ContentGeneration, LevelFull},
		{"product", "How much is the unlimited data plan?", ProductInquiry, LevelStandard},
		{"product-single", "plan", ProductInquiry, LevelStandard},
		{"compliance", "Is this compliant with our brand guidelines?", ComplianceRequest, LevelStrict},
		{"compliance-review", "Please review this for tone", ComplianceRequest, LevelStrict},
		{"feedback", "Thanks, that was really helpful", Feedback, LevelMinimal},
	}
	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			assert.Equal(t, tt.wantIntent, got.Intent)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}

func TestClassify_GeneralChatFallback(t *testing.T) {
	got := NewClassifier().Classify("hello")
	assert.Equal(t, GeneralChat, got.Intent)
	assert.Equal(t, 0.5, got.Confidence)
	assert.Empty(t, got.MatchedKeywords)
	assert.False(t, RequiresValidation(got.Level))
}

func TestClassify_ScoreAndMatches(t *testing.T) {
	got := NewClassifier().Classify("Thanks, that was really helpful")
	assert.InDelta(t, 2.0/3.0, got.Confidence, 1e-9)
	assert.Equal(t, []string{"thanks", "helpful"}, got.MatchedKeywords)

	capped := NewClassifier().Classify("How much is the unlimited data plan?")
	assert.Equal(t, 1.0, capped.Confidence)
	assert.Contains(t, capped.MatchedKeywords, "how much")
}

func TestClassify_CustomProfiles(t *testing.T) {
	c := NewClassifier(Profile{Intent: Feedback, Keywords: []string{"meh"}, Phrases: []string{"not bad"}})
	got := c.Classify("meh, not bad")
	assert.Equal(t, Feedback, got.Intent)
	assert.InDelta(t, 1.0/3.0+0.3, got.Confidence, 1e-9)

	assert.Equal(t, GeneralChat, c.Classify("write a caption").Intent)
}

func TestConfigFor(t *testing.T) {
	assert.Equal(t, ValidationConfig{}, ConfigFor(LevelNone))
	assert.Equal(t, ValidationConfig{CheckAvoidWords: true}, ConfigFor(LevelMinimal))
	assert.Equal(t, FullConfig(), ConfigFor(LevelStandard))
	assert.Equal(t, FullConfig(), ConfigFor(LevelFull))

	strict := ConfigFor(LevelStrict)
	assert.True(t, strict.StrictMode)
	assert.True(t, strict.CheckAvoidWords && strict.CheckReadability && strict.CalculateTrustScore && strict.ApplyAutoFixes)

	assert.Equal(t, ValidationConfig{}, ConfigFor("bogus"))
}

func TestValidationLevelFor(t *testing.T) {
	assert.Equal(t, LevelFull, ValidationLevelFor(ContentGeneration))
	assert.Equal(t, LevelStrict, ValidationLevelFor(ComplianceRequest))
	assert.Equal(t, LevelNone, ValidationLevelFor("unknown"))

	assert.False(t, RequiresValidation(LevelNone))
	assert.True(t, RequiresValidation(LevelMinimal))
}
