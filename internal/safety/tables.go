package safety

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var bundledFS embed.FS

// #region tables
// Tables holds the compiled patterns and per-domain payloads.
type Tables struct {
	patterns []compiledPattern
	domains  map[Domain]DomainInfo
}

type compiledPattern struct {
	Pattern
	re *regexp.Regexp
}

type patternFile struct {
	Patterns []Pattern `yaml:"patterns"`
}

type domainFile struct {
	Domains map[string]DomainInfo `yaml:"domains"`
}

// NewTables validates and compiles patterns. Plain patterns are lowercased.
func NewTables(patterns []Pattern, domains map[Domain]DomainInfo) (*Tables, error) {
	t := &Tables{domains: make(map[Domain]DomainInfo, len(domains))}
	for i, p := range patterns {
		if strings.TrimSpace(p.Pattern) == "" {
			return nil, fmt.Errorf("pattern %d: empty", i)
		}
		if domainRank(p.Domain) == len(Domains()) {
			return nil, fmt.Errorf("pattern %q: invalid domain %q", p.Pattern, p.Domain)
		}
		if p.Level <= LevelNone || p.Level > LevelCritical {
			return nil, fmt.Errorf("pattern %q: level must be low..critical, got %s", p.Pattern, p.Level)
		}
		cp := compiledPattern{Pattern: p}
		if p.IsRegex {
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", p.Pattern, err)
			}
			cp.re = re
		} else {
			cp.Pattern.Pattern = strings.ToLower(strings.TrimSpace(p.Pattern))
		}
		t.patterns = append(t.patterns, cp)
	}
	for d, info := range domains {
		if info.Emergency != nil {
			em := *info.Emergency
			em.Domain = d
			info.Emergency = &em
		}
		t.domains[d] = info
	}
	return t, nil
}

// Len returns the number of patterns.
func (t *Tables) Len() int {
	return len(t.patterns)
}

// Patterns returns a copy of the pattern table.
func (t *Tables) Patterns() []Pattern {
	out := make([]Pattern, len(t.patterns))
	for i, p := range t.patterns {
		out[i] = p.Pattern
	}
	return out
}

func (p compiledPattern) match(lower string) bool {
	if p.re != nil {
		return p.re.MatchString(lower)
	}
	return strings.Contains(lower, p.Pattern.Pattern)
}

// #endregion tables

// #region bundled
// BundledTables returns the tables compiled into the binary. They are parsed once.
var BundledTables = sync.OnceValues(loadBundled)

func loadBundled() (*Tables, error) {
	raw, err := bundledFS.ReadFile("data/patterns.yaml")
	if err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	var pf patternFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}

	raw, err = bundledFS.ReadFile("data/domains.yaml")
	if err != nil {
		return nil, fmt.Errorf("read domains: %w", err)
	}
	var df domainFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("decode domains: %w", err)
	}
	domains := make(map[Domain]DomainInfo, len(df.Domains))
	for name, info := range df.Domains {
		d := Domain(name)
		if domainRank(d) == len(Domains()) {
			return nil, fmt.Errorf("domains: invalid domain %q", name)
		}
		domains[d] = info
	}
	return NewTables(pf.Patterns, domains)
}

// #endregion bundled
