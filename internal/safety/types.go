package safety

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// #region domain
// Domain is a sensitive topic area.
type Domain string

const (
	DomainHealth       Domain = "health"
	DomainMentalHealth Domain = "mentalHealth"
	DomainFinance      Domain = "finance"
	DomainLegal        Domain = "legal"
	DomainPrivacy      Domain = "privacy"
	DomainEmergency    Domain = "emergency"
	DomainViolence     Domain = "violence"
	DomainSubstance    Domain = "substance"
	DomainGambling     Domain = "gambling"
	DomainMinors       Domain = "minors"
	DomainPolitical    Domain = "political"
	DomainReligious    Domain = "religious"
)

// Domains returns every domain in tie-break order.
func Domains() []Domain {
	return []Domain{
		DomainMentalHealth, DomainEmergency, DomainViolence, DomainSubstance,
		DomainMinors, DomainHealth, DomainFinance, DomainLegal,
		DomainPrivacy, DomainGambling, DomainPolitical, DomainReligious,
	}
}

func domainRank(d Domain) int {
	for i, x := range Domains() {
		if x == d {
			return i
		}
	}
	return len(Domains())
}

// UnmarshalYAML rejects unknown domains.
func (d *Domain) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if domainRank(Domain(s)) == len(Domains()) {
		return fmt.Errorf("invalid safety domain: %q", s)
	}
	*d = Domain(s)
	return nil
}

// #endregion domain

// #region level
// Level is the severity of a safety concern. Levels are totally ordered.
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelModerate
	LevelHigh
	LevelCritical
)

var levelNames = [...]string{"none", "low", "moderate", "high", "critical"}

// String returns the lowercase level name.
func (l Level) String() string {
	if l < LevelNone || l > LevelCritical {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	for i, n := range levelNames {
		if n == s {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("invalid safety level: %q", s)
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// UnmarshalYAML decodes a level name.
func (l *Level) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return l.UnmarshalText([]byte(s))
}

// #endregion level

// #region routing
// Routing is the action taken for a classified text.
type Routing string

const (
	RouteProceedNormal         Routing = "proceedNormal"
	RouteProceedWithDisclaimer Routing = "proceedWithDisclaimer"
	RouteProceedModified       Routing = "proceedModified"
	RouteEmergencyResponse     Routing = "emergencyResponse"
	RouteBlockAndLog           Routing = "blockAndLog"
)

// Protectiveness orders routings from least to most protective.
// The two critical outcomes rank equally.
func (r Routing) Protectiveness() int {
	switch r {
	case RouteProceedWithDisclaimer:
		return 1
	case RouteProceedModified:
		return 2
	case RouteEmergencyResponse, RouteBlockAndLog:
		return 3
	}
	return 0
}

// #endregion routing

// #region gate-config
// GateConfig holds the warmth caps applied per level. Warmth runs 0..MaxWarmth.
type GateConfig struct {
	MaxWarmth         int
	LowWarmthCap      int
	ModerateWarmthCap int
	HighWarmthCap     int
	CriticalWarmthCap int
}

// DefaultGateConfig returns the standard caps.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxWarmth:         10,
		LowWarmthCap:      8,
		ModerateWarmthCap: 6,
		HighWarmthCap:     4,
		CriticalWarmthCap: 3,
	}
}

// #endregion gate-config

// #region patterns
// Pattern maps a phrase or expression to a domain and level.
type Pattern struct {
	Pattern string `yaml:"pattern"`
	Domain  Domain `yaml:"domain"`
	Level   Level  `yaml:"level"`
	IsRegex bool   `yaml:"regex,omitempty"`
}

// Helpline is a contact shown alongside an emergency response.
type Helpline struct {
	Name   string `yaml:"name" json:"name"`
	Number string `yaml:"number" json:"number"`
	Hours  string `yaml:"hours,omitempty" json:"hours,omitempty"`
}

// EmergencyInfo is the structured payload a caller renders as a help message.
type EmergencyInfo struct {
	Domain           Domain     `yaml:"-" json:"domain"`
	Helplines        []Helpline `yaml:"helplines" json:"helplines"`
	ImmediateMessage string     `yaml:"message" json:"immediate_message"`
}

// DomainInfo holds the disclaimer and optional emergency payload of a domain.
type DomainInfo struct {
	Disclaimer string         `yaml:"disclaimer"`
	Emergency  *EmergencyInfo `yaml:"emergency,omitempty"`
}

// #endregion patterns

// #region result
// Classification records one matched pattern.
type Classification struct {
	Domain              Domain   `json:"domain"`
	Level               Level    `json:"level"`
	MatchedPatterns     []string `json:"matched_patterns"`
	SuggestedDisclaimer string   `json:"suggested_disclaimer,omitempty"`
	Confidence          float64  `json:"confidence"`
}

// Modifications constrain how a downstream generator may respond.
type Modifications struct {
	MaxWarmth       int            `json:"max_warmth"`
	ToneLock        string         `json:"tone_lock,omitempty"` // "professional" | "supportive"
	BlockPersuasive bool           `json:"block_persuasive"`
	Disclaimer      string         `json:"disclaimer,omitempty"`
	EmergencyInfo   *EmergencyInfo `json:"emergency_info,omitempty"`
}

// Result is the gate's decision for one text.
type Result struct {
	Routing          Routing          `json:"routing"`
	MaxLevel         Level            `json:"max_level"`
	TopDomain        Domain           `json:"top_domain,omitempty"`
	Classifications  []Classification `json:"classifications"`
	Modifications    Modifications    `json:"modifications"`
	BlockedReason    string           `json:"blocked_reason,omitempty"`
	ProcessingTimeMs float64          `json:"processing_time_ms"`
}

// #endregion result
