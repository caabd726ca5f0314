package safety

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/voiceguard/internal/textproc"
	"github.com/rs/zerolog/log"
)

// #region gate
// Observer receives each routing decision.
type Observer interface {
	ObserveRouting(routing string)
}

// Gate classifies text into safety domains and derives a routing decision.
// It keeps no state between calls.
type Gate struct {
	config   GateConfig
	tables   *Tables
	observer Observer
}

// Option configures a Gate.
type Option func(*Gate)

// WithTables replaces the bundled pattern tables.
func WithTables(t *Tables) Option {
	return func(g *Gate) { g.tables = t }
}

// WithObserver reports every routing decision to o.
func WithObserver(o Observer) Option {
	return func(g *Gate) { g.observer = o }
}

// NewGate creates a gate with the given configuration over the bundled tables.
func NewGate(config GateConfig, opts ...Option) *Gate {
	g := &Gate{config: config}
	for _, opt := range opts {
		opt(g)
	}
	if g.tables == nil {
		t, err := BundledTables()
		if err != nil {
			log.Error().Str("component", "safety").Err(err).Msg("bundled safety tables invalid")
			t = &Tables{domains: map[Domain]DomainInfo{}}
		}
		g.tables = t
	}
	return g
}

// Classify tests every pattern against the lowercased text and routes on the
// highest level found. One classification is produced per matching pattern.
func (g *Gate) Classify(text string) Result {
	start := time.Now()
	lower := textproc.Lower(text)

	var cls []Classification
	if lower != "" {
		for _, p := range g.tables.patterns {
			if !p.match(lower) {
				continue
			}
			cls = append(cls, Classification{
				Domain:              p.Domain,
				Level:               p.Level,
				MatchedPatterns:     []string{p.Pattern.Pattern},
				SuggestedDisclaimer: g.tables.domains[p.Domain].Disclaimer,
				Confidence:          1.0,
			})
		}
	}

	res := g.decide(cls)
	res.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000

	if g.observer != nil {
		g.observer.ObserveRouting(string(res.Routing))
	}
	log.Trace().Str("component", "safety").Int("len", len(text)).Int("matches", len(cls)).
		Str("max_level", res.MaxLevel.String()).Str("routing", string(res.Routing)).Msg("classified")
	return res
}

// decide applies the routing table to a set of classifications.
func (g *Gate) decide(cls []Classification) Result {
	maxLevel, top := TopDomain(cls)
	var em *EmergencyInfo
	if info, ok := g.tables.domains[top]; ok && maxLevel == LevelCritical {
		em = info.Emergency
	}

	res := Result{
		Routing:         RouteFor(maxLevel, em != nil),
		MaxLevel:        maxLevel,
		TopDomain:       top,
		Classifications: cls,
		Modifications:   Modifications{MaxWarmth: g.config.MaxWarmth},
	}
	disclaimer := g.tables.domains[top].Disclaimer

	switch maxLevel {
	case LevelLow:
		res.Modifications.MaxWarmth = g.config.LowWarmthCap
	case LevelModerate:
		res.Modifications.MaxWarmth = g.config.ModerateWarmthCap
		res.Modifications.Disclaimer = disclaimer
	case LevelHigh:
		res.Modifications.MaxWarmth = g.config.HighWarmthCap
		res.Modifications.ToneLock = "professional"
		res.Modifications.BlockPersuasive = true
		res.Modifications.Disclaimer = disclaimer
	case LevelCritical:
		res.Modifications.MaxWarmth = g.config.CriticalWarmthCap
		res.Modifications.ToneLock = "supportive"
		res.Modifications.BlockPersuasive = true
		res.Modifications.Disclaimer = disclaimer
		res.Modifications.EmergencyInfo = em
		if em == nil {
			res.BlockedReason = fmt.Sprintf("critical %s content has no emergency response", top)
			log.Warn().Str("component", "safety").Str("domain", string(top)).Msg("blocked critical content")
		}
	}
	return res
}

// #endregion gate

// #region routing-table
// RouteFor is the routing table. Only the maximum level matters; at critical
// the outcome depends on whether the top domain carries an emergency payload.
func RouteFor(maxLevel Level, hasEmergency bool) Routing {
	switch {
	case maxLevel >= LevelCritical:
		if hasEmergency {
			return RouteEmergencyResponse
		}
		return RouteBlockAndLog
	case maxLevel == LevelHigh:
		return RouteProceedModified
	case maxLevel == LevelModerate:
		return RouteProceedWithDisclaimer
	default:
		return RouteProceedNormal
	}
}

// TopDomain returns the maximum level across cls and the domain with the most
// matches at that level. Ties go to the domain listed first in Domains.
func TopDomain(cls []Classification) (Level, Domain) {
	maxLevel := LevelNone
	for _, c := range cls {
		if c.Level > maxLevel {
			maxLevel = c.Level
		}
	}
	if maxLevel == LevelNone {
		return LevelNone, ""
	}
	counts := make(map[Domain]int)
	for _, c := range cls {
		if c.Level == maxLevel {
			counts[c.Domain]++
		}
	}
	var top Domain
	best := 0
	for _, d := range Domains() {
		if counts[d] > best {
			top, best = d, counts[d]
		}
	}
	return maxLevel, top
}

// #endregion routing-table

// #region queries
// HasCriticalConcern reports whether any pattern at critical level matches.
func (g *Gate) HasCriticalConcern(text string) bool {
	return len(g.CriticalDomains(text)) > 0
}

// CriticalDomains returns the distinct domains matched at critical level, in Domains order.
func (g *Gate) CriticalDomains(text string) []Domain {
	lower := textproc.Lower(text)
	if lower == "" {
		return nil
	}
	hit := make(map[Domain]bool)
	for _, p := range g.tables.patterns {
		if p.Level == LevelCritical && !hit[p.Domain] && p.match(lower) {
			hit[p.Domain] = true
		}
	}
	var out []Domain
	for _, d := range Domains() {
		if hit[d] {
			out = append(out, d)
		}
	}
	return out
}

// RequiresEmergencyResponse classifies text and returns the emergency payload
// when the routing resolves to an emergency response.
func (g *Gate) RequiresEmergencyResponse(text string) (EmergencyInfo, bool) {
	res := g.Classify(text)
	if res.Routing != RouteEmergencyResponse || res.Modifications.EmergencyInfo == nil {
		return EmergencyInfo{}, false
	}
	return *res.Modifications.EmergencyInfo, true
}

// Disclaimer returns the disclaimer text of a domain.
func (g *Gate) Disclaimer(d Domain) string {
	return g.tables.domains[d].Disclaimer
}

// EmergencyInfoFor returns the emergency payload of a domain, if it has one.
func (g *Gate) EmergencyInfoFor(d Domain) (EmergencyInfo, bool) {
	info, ok := g.tables.domains[d]
	if !ok || info.Emergency == nil {
		return EmergencyInfo{}, false
	}
	return *info.Emergency, true
}

// PatternCount returns the number of loaded patterns.
func (g *Gate) PatternCount() int {
	return g.tables.Len()
}

// #endregion queries
