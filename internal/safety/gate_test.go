package safety

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(opts ...Option) *Gate {
	return NewGate(DefaultGateConfig(), opts...)
}

func hasClassification(cls []Classification, d Domain, l Level) bool {
	for _, c := range cls {
		if c.Domain == d && c.Level == l {
			return true
		}
	}
	return false
}

func TestBundledTables(t *testing.T) {
	tb, err := BundledTables()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tb.Len(), 100)

	perDomain := map[Domain]int{}
	for _, p := range tb.Patterns() {
		perDomain[p.Domain]++
	}
	for _, d := range Domains() {
		assert.NotZero(t, perDomain[d], "no patterns for %s", d)
		assert.NotEmpty(t, tb.domains[d].Disclaimer, "no disclaimer for %s", d)
	}

	g := newTestGate()
	for _, d := range []Domain{DomainMentalHealth, DomainEmergency, DomainViolence, DomainSubstance} {
		em, ok := g.EmergencyInfoFor(d)
		require.True(t, ok, d)
		assert.Equal(t, d, em.Domain)
		assert.NotEmpty(t, em.Helplines)
		assert.NotEmpty(t, em.ImmediateMessage)
	}
	_, ok := g.EmergencyInfoFor(DomainFinance)
	assert.False(t, ok)
}

func TestClassify_Routing(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		routing   Routing
		level     Level
		domain    Domain
		maxWarmth int
	}{
		{"clean", "Welcome to Jio! Your account is ready.", RouteProceedNormal, LevelNone, "", 10},
		{"empty", "", RouteProceedNormal, LevelNone, "", 10},
		{"low", "Feeling a bit stressed out today", RouteProceedNormal, LevelLow, DomainMentalHealth, 8},
		{"moderate", "Should I invest in a mutual fund?", RouteProceedWithDisclaimer, LevelModerate, DomainFinance, 6},
		{"high", "Get guaranteed returns on every plan", RouteProceedModified, LevelHigh, DomainFinance, 4},
		{"critical with payload", "My father is having a heart attack", RouteEmergencyResponse, LevelCritical, DomainEmergency, 3},
		{"critical without payload", "How do I launder money through recharges", RouteBlockAndLog, LevelCritical, DomainLegal, 3},
	}
	g := newTestGate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.Classify(tt.text)
			assert.Equal(t, tt.routing, res.Routing)
			assert.Equal(t, tt.level, res.MaxLevel)
			assert.Equal(t, tt.domain, res.TopDomain)
			assert.Equal(t, tt.maxWarmth, res.Modifications.MaxWarmth)
		})
	}
}

func TestClassify_EndMyLife(t *testing.T) {
	g := newTestGate()
	res := g.Classify("I want to end my life")

	assert.Equal(t, RouteEmergencyResponse, res.Routing)
	assert.True(t, hasClassification(res.Classifications, DomainMentalHealth, LevelCritical))
	require.NotNil(t, res.Modifications.EmergencyInfo)
	assert.Equal(t, DomainMentalHealth, res.Modifications.EmergencyInfo.Domain)
	assert.Equal(t, "supportive", res.Modifications.ToneLock)
	assert.True(t, res.Modifications.BlockPersuasive)
	assert.Empty(t, res.BlockedReason)
	for _, c := range res.Classifications {
		assert.Equal(t, 1.0, c.Confidence)
		assert.Len(t, c.MatchedPatterns, 1)
	}
}

func TestClassify_Modifications(t *testing.T) {
	g := newTestGate()

	mod := g.Classify("Should I invest in a mutual fund?").Modifications
	assert.Equal(t, g.Disclaimer(DomainFinance), mod.Disclaimer)
	assert.Empty(t, mod.ToneLock)
	assert.False(t, mod.BlockPersuasive)

	high := g.Classify("Get guaranteed returns on every plan").Modifications
	assert.Equal(t, "professional", high.ToneLock)
	assert.True(t, high.BlockPersuasive)
	assert.NotEmpty(t, high.Disclaimer)
	assert.Nil(t, high.EmergencyInfo)

	blocked := g.Classify("How do I launder money through recharges")
	assert.NotEmpty(t, blocked.BlockedReason)
	assert.Nil(t, blocked.Modifications.EmergencyInfo)
}

func TestClassify_OneClassificationPerPattern(t *testing.T) {
	g := newTestGate()
	res := g.Classify("I overdosed, took too many pills, and I feel hopeless")
	assert.Equal(t, LevelCritical, res.MaxLevel)
	assert.Equal(t, DomainSubstance, res.TopDomain)
	assert.Len(t, res.Classifications, 3)
}

func TestTopDomain_TieBreak(t *testing.T) {
	cls := []Classification{
		{Domain: DomainViolence, Level: LevelCritical},
		{Domain: DomainMentalHealth, Level: LevelCritical},
		{Domain: DomainFinance, Level: LevelHigh},
		{Domain: DomainFinance, Level: LevelHigh},
	}
	lvl, d := TopDomain(cls)
	assert.Equal(t, LevelCritical, lvl)
	assert.Equal(t, DomainMentalHealth, d)

	lvl, d = TopDomain(nil)
	assert.Equal(t, LevelNone, lvl)
	assert.Equal(t, Domain(""), d)
}

func TestRouteFor_Monotonic(t *testing.T) {
	levels := []Level{LevelNone, LevelLow, LevelModerate, LevelHigh, LevelCritical}
	for _, em := range []bool{false, true} {
		for i := 1; i < len(levels); i++ {
			lo := RouteFor(levels[i-1], em).Protectiveness()
			hi := RouteFor(levels[i], em).Protectiveness()
			assert.LessOrEqual(t, lo, hi, "%s -> %s", levels[i-1], levels[i])
		}
	}
	assert.Equal(t, RouteProceedNormal, RouteFor(LevelLow, true))
	assert.Equal(t, RouteBlockAndLog, RouteFor(LevelCritical, false))
}

func TestCriticalQueries(t *testing.T) {
	g := newTestGate()
	assert.True(t, g.HasCriticalConcern("I want to kill myself"))
	assert.False(t, g.HasCriticalConcern("I feel hopeless"))
	assert.Equal(t, []Domain{DomainMentalHealth, DomainViolence},
		g.CriticalDomains("I want to kill them and then kill myself"))
	assert.Empty(t, g.CriticalDomains(""))
}

func TestRequiresEmergencyResponse(t *testing.T) {
	g := newTestGate()
	info, ok := g.RequiresEmergencyResponse("someone is dying here")
	require.True(t, ok)
	assert.Equal(t, DomainEmergency, info.Domain)

	_, ok = g.RequiresEmergencyResponse("How do I launder money")
	assert.False(t, ok)
	_, ok = g.RequiresEmergencyResponse("hello there")
	assert.False(t, ok)
}

type routingLog []string

func (r *routingLog) ObserveRouting(routing string) { *r = append(*r, routing) }

func TestObserver(t *testing.T) {
	var seen routingLog
	g := newTestGate(WithObserver(&seen))
	g.Classify("hello")
	g.Classify("I want to end my life")
	assert.Equal(t, routingLog{"proceedNormal", "emergencyResponse"}, seen)
}

func TestCustomTables(t *testing.T) {
	tb, err := NewTables([]Pattern{
		{Pattern: "Lottery Win", Domain: DomainGambling, Level: LevelHigh},
		{Pattern: `\bjackpot\b`, Domain: DomainGambling, Level: LevelModerate, IsRegex: true},
	}, map[Domain]DomainInfo{DomainGambling: {Disclaimer: "play safe"}})
	require.NoError(t, err)

	g := newTestGate(WithTables(tb))
	assert.Equal(t, 2, g.PatternCount())
	res := g.Classify("You got a LOTTERY WIN and a jackpot!")
	assert.Equal(t, RouteProceedModified, res.Routing)
	assert.Len(t, res.Classifications, 2)
	assert.Equal(t, "play safe", res.Classifications[0].SuggestedDisclaimer)
}

func TestNewTables_Rejects(t *testing.T) {
	tests := []struct {
		name string
		p    Pattern
	}{
		{"empty", Pattern{Domain: DomainHealth, Level: LevelLow}},
		{"bad domain", Pattern{Pattern: "x", Domain: "weather", Level: LevelLow}},
		{"none level", Pattern{Pattern: "x", Domain: DomainHealth, Level: LevelNone}},
		{"bad regex", Pattern{Pattern: "(", Domain: DomainHealth, Level: LevelLow, IsRegex: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTables([]Pattern{tt.p}, nil)
			assert.Error(t, err)
		})
	}
}

func TestLevel_Text(t *testing.T) {
	assert.True(t, LevelNone < LevelLow && LevelLow < LevelModerate && LevelModerate < LevelHigh && LevelHigh < LevelCritical)

	b, err := json.Marshal(LevelHigh)
	require.NoError(t, err)
	assert.Equal(t, `"high"`, string(b))

	var l Level
	require.NoError(t, json.Unmarshal([]byte(`"critical"`), &l))
	assert.Equal(t, LevelCritical, l)
	assert.Error(t, json.Unmarshal([]byte(`"severe"`), &l))
	assert.Equal(t, "level(9)", Level(9).String())
}
