package intent

import (
	"math"
	"strings"

	"github.com/danielpatrickdp/voiceguard/internal/textproc"
	"github.com/rs/zerolog/log"
)

const (
	// keywordNorm turns a keyword hit count into a score; three hits saturate it.
	keywordNorm = 3.0
	phraseBonus = 0.3
	// questionBonus is added to product inquiries that ask a question.
	questionBonus = 0.2
	// MinConfidence is the score below which a message is treated as general chat.
	MinConfidence = 0.3
	// fallbackConfidence is reported for general chat.
	fallbackConfidence = 0.5
)

// #region keywords
// Profile is the keyword and phrase table of one scored intent.
type Profile struct {
	Intent   Intent
	Keywords []string
	Phrases  []string
}

// DefaultProfiles returns the scored intents in tie-break order.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Intent: ContentGeneration,
			Keywords: []string{
				"write", "draft", "create", "generate", "compose", "rewrite", "rephrase",
				"caption", "tagline", "post", "email", "copy", "headline", "announcement",
				"slogan", "banner", "notification", "sms", "blog", "content", "description",
			},
			Phrases: []string{"write a", "write me", "draft a", "create a", "help me write", "can you write", "come up with"},
		},
		{
			Intent: ComplianceRequest,
			Keywords: []string{
				"compliance", "compliant", "check", "review", "validate", "verify", "audit",
				"brand", "guidelines", "guideline", "tone", "policy", "approve", "proofread",
				"readability", "regulation", "regulatory", "trai",
			},
			Phrases: []string{"is this compliant", "check this", "on brand", "brand voice", "review this", "does this follow"},
		},
		{
			Intent: ProductInquiry,
			Keywords: []string{
				"plan", "plans", "price", "pricing", "cost", "recharge", "data", "validity",
				"offer", "offers", "tariff", "prepaid", "postpaid", "fiber", "broadband", "5g",
				"sim", "unlimited", "roaming", "speed", "bill", "ott",
			},
			Phrases: []string{"how much", "which plan", "what is the price", "is there a plan", "do you have"},
		},
		{
			Intent: Feedback,
			Keywords: []string{
				"thanks", "thank", "great", "good", "bad", "love", "hate", "awesome", "terrible",
				"feedback", "helpful", "unhelpful", "wrong", "perfect", "useless", "nice", "poor", "excellent",
			},
			Phrases: []string{"thank you", "well done", "not helpful", "this is great", "didn't work", "doesn't work"},
		},
	}
}

// #endregion keywords

// #region classifier
// Classifier maps free text to an intent by keyword scoring. No model call.
type Classifier struct {
	profiles []scoredProfile
}

type scoredProfile struct {
	Profile
	keywords map[string]bool
	phrases  []string
}

// NewClassifier builds a classifier over the given profiles. No profiles means DefaultProfiles.
func NewClassifier(profiles ...Profile) *Classifier {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	c := &Classifier{}
	for _, p := range profiles {
		sp := scoredProfile{Profile: p, keywords: make(map[string]bool, len(p.Keywords))}
		for _, k := range p.Keywords {
			sp.keywords[textproc.Key(k)] = true
		}
		for _, ph := range p.Phrases {
			sp.phrases = append(sp.phrases, textproc.Key(ph))
		}
		c.profiles = append(c.profiles, sp)
	}
	return c
}

// Classify scores each intent and returns the best one. Scores below
// MinConfidence fall back to general chat.
func (c *Classifier) Classify(text string) Classification {
	lower := textproc.Lower(strings.TrimSpace(text))
	words := textproc.UniqueWords(lower)
	question := strings.Contains(lower, "?")

	best := Classification{Intent: GeneralChat}
	for _, p := range c.profiles {
		score, matched := p.score(lower, words, question)
		if score > best.Confidence {
			best = Classification{Intent: p.Intent, Confidence: score, MatchedKeywords: matched}
		}
	}
	if best.Confidence < MinConfidence {
		best = Classification{Intent: GeneralChat, Confidence: fallbackConfidence}
	}
	best.Level = ValidationLevelFor(best.Intent)

	log.Trace().Str("component", "intent").Str("intent", string(best.Intent)).
		Float64("confidence", best.Confidence).Strs("matched", best.MatchedKeywords).Msg("classified")
	return best
}

func (p scoredProfile) score(lower string, words []string, question bool) (float64, []string) {
	n, matched := textproc.SharedCount(words, p.keywords)
	score := float64(n) / keywordNorm
	for _, ph := range p.phrases {
		if strings.Contains(lower, ph) {
			score += phraseBonus
			matched = append(matched, ph)
			break
		}
	}
	if question && p.Intent == ProductInquiry {
		score += questionBonus
	}
	return math.Min(score, 1.0), matched
}

// #endregion classifier
