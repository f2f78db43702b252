package classifier

import (
	"embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed patterns/parent_insults.yaml
var defaultPatterns embed.FS

const defaultPatternFile = "patterns/parent_insults.yaml"

type patternFile struct {
	Name     string   `yaml:"name"`
	Version  int      `yaml:"version"`
	Patterns []string `yaml:"patterns"`
}

// PatternSet is an immutable, versioned list of compiled insult patterns.
type PatternSet struct {
	Name    string
	Version int
	rules   []*regexp.Regexp
}

// ParsePatternSet compiles a YAML pattern resource.
func ParsePatternSet(data []byte) (*PatternSet, error) {
	var f patternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pattern set: %w", err)
	}
	if f.Version < 1 {
		return nil, fmt.Errorf("pattern set %q: version must be positive", f.Name)
	}
	if len(f.Patterns) == 0 {
		return nil, fmt.Errorf("pattern set %q: no patterns", f.Name)
	}

	set := &PatternSet{
		Name:    f.Name,
		Version: f.Version,
		rules:   make([]*regexp.Regexp, 0, len(f.Patterns)),
	}
	for i, src := range f.Patterns {
		rx, err := regexp.Compile("(?is)" + src)
		if err != nil {
			return nil, fmt.Errorf("pattern set %q: pattern %d: %w", f.Name, i, err)
		}
		set.rules = append(set.rules, rx)
	}
	return set, nil
}

// LoadPatternSet reads a pattern resource from disk.
func LoadPatternSet(path string) (*PatternSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern set %s: %w", path, err)
	}
	return ParsePatternSet(data)
}

// DefaultPatternSet returns the pattern set compiled into the binary.
func DefaultPatternSet() *PatternSet {
	data, err := defaultPatterns.ReadFile(defaultPatternFile)
	if err != nil {
		panic(err)
	}
	set, err := ParsePatternSet(data)
	if err != nil {
		panic(err)
	}
	return set
}

func (p *PatternSet) Len() int {
	return len(p.rules)
}

// Match tests already normalized text and returns the first pattern that hits.
func (p *PatternSet) Match(normalized string) (string, bool) {
	padded := " " + normalized + " "
	for _, rx := range p.rules {
		if rx.MatchString(padded) {
			return rx.String(), true
		}
	}
	return "", false
}
