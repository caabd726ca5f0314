package rules

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var bundledFS embed.FS

var bundledFiles = []string{
	"data/avoid_terms.yaml",
	"data/preferred_terms.yaml",
	"data/auto_fixes.yaml",
}

// #region table-file
// TableFile is the on-disk shape of a rule table document. Any of the three
// sections may be absent; a bundled table is split across several files.
type TableFile struct {
	AvoidTerms     []AvoidTerm     `yaml:"avoid_terms"`
	PreferredTerms []PreferredTerm `yaml:"preferred_terms"`
	AutoFixes      []AutoFixRule   `yaml:"auto_fixes"`
}

func (f *TableFile) merge(other TableFile) {
	f.AvoidTerms = append(f.AvoidTerms, other.AvoidTerms...)
	f.PreferredTerms = append(f.PreferredTerms, other.PreferredTerms...)
	f.AutoFixes = append(f.AutoFixes, other.AutoFixes...)
}

// ParseTableFile decodes a YAML rule document. Unknown fields are rejected.
func ParseTableFile(data []byte) (TableFile, error) {
	var f TableFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return TableFile{}, nil
		}
		return TableFile{}, fmt.Errorf("decode rule table: %w", err)
	}
	return f, nil
}

// #endregion table-file

// #region sources
// Source supplies rule rows to a Repository.
type Source interface {
	Name() string
	Load() (TableFile, error)
}

// BundledSource serves the rule tables compiled into the binary.
type BundledSource struct{}

// Name implements Source.
func (BundledSource) Name() string { return "bundled" }

// Load implements Source.
func (BundledSource) Load() (TableFile, error) {
	var out TableFile
	for _, name := range bundledFiles {
		data, err := bundledFS.ReadFile(name)
		if err != nil {
			return TableFile{}, fmt.Errorf("read %s: %w", name, err)
		}
		f, err := ParseTableFile(data)
		if err != nil {
			return TableFile{}, fmt.Errorf("%s: %w", name, err)
		}
		out.merge(f)
	}
	return out, nil
}

// FileSource layers a YAML override file on top of the bundled tables.
// Rows in the file replace bundled rows with the same key.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return "file:" + s.Path }

// Load implements Source.
func (s FileSource) Load() (TableFile, error) {
	base, err := BundledSource{}.Load()
	if err != nil {
		return TableFile{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return TableFile{}, fmt.Errorf("read rule file: %w", err)
	}
	override, err := ParseTableFile(data)
	if err != nil {
		return TableFile{}, fmt.Errorf("%s: %w", s.Path, err)
	}
	base.merge(override)
	return base, nil
}

// #endregion sources
