package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string        `json:"description"`
	Config      FixtureConfig `json:"config"`
	Cases       []Case        `json:"cases"`
}

// FixtureConfig overrides scoring options for the run. Zero values keep defaults.
type FixtureConfig struct {
	MinScore       int `json:"min_score"`
	StrictMinScore int `json:"strict_min_score"`
}

// Case is one recorded text and the verdict it must produce.
type Case struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Prompt    string `json:"prompt,omitempty"`
	UseIntent bool   `json:"use_intent,omitempty"` // route through intent detection even without a prompt
	Expect    Expect `json:"expect"`
}

// Expect lists the checks applied to a case. Unset fields are not checked.
type Expect struct {
	Passed     *bool    `json:"passed,omitempty"`
	Skipped    *bool    `json:"skipped,omitempty"`
	MinScore   *int     `json:"min_score,omitempty"`
	MaxScore   *int     `json:"max_score,omitempty"`
	Routing    string   `json:"routing,omitempty"`
	Intent     string   `json:"intent,omitempty"`
	Violations []string `json:"violations,omitempty"` // rule ids that must be present
	Absent     []string `json:"absent,omitempty"`     // rule ids that must not be present
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i, c := range f.Cases {
		if c.ID == "" {
			f.Cases[i].ID = fmt.Sprintf("case-%d", i+1)
		}
	}
	return &f, nil
}

// FixturePaths returns the .json files under dir, sorted.
func FixturePaths(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob fixtures: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// #endregion fixture-loader
