package scoring

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

const (
	defaultLabeledThreshold   = 0.55
	defaultUnlabeledThreshold = 0.75
)

// Lexicon holds the configuration data both classifiers depend on: the
// primary model's label vocabulary and the heuristic cue phrases.
type Lexicon struct {
	Labels     LabelVocabulary `yaml:"labels"`
	Thresholds Thresholds      `yaml:"thresholds"`
	Cues       CueLists        `yaml:"cues"`
}

// LabelVocabulary maps a model's raw label strings onto credibility polarity.
type LabelVocabulary struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Thresholds are the minimum probabilities for a decisive classification.
// Labeled applies to labels found in the vocabulary, Unlabeled to anything else.
type Thresholds struct {
	Labeled   float64 `yaml:"labeled"`
	Unlabeled float64 `yaml:"unlabeled"`
}

// CueLists are literal phrases matched case-insensitively by the heuristic.
type CueLists struct {
	Misinformation []string `yaml:"misinformation"`
	Authority      []string `yaml:"authority"`
}

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() Lexicon {
	lex, err := ParseLexicon(defaultLexicon)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}
	return lex
}

// LoadLexicon reads a YAML lexicon from disk. Missing thresholds take the
// built-in defaults.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes and validates a YAML lexicon document.
func ParseLexicon(data []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("unmarshal lexicon: %w", err)
	}
	if lex.Thresholds.Labeled == 0 {
		lex.Thresholds.Labeled = defaultLabeledThreshold
	}
	if lex.Thresholds.Unlabeled == 0 {
		lex.Thresholds.Unlabeled = defaultUnlabeledThreshold
	}
	lex.Labels.Positive = normalizePhrases(lex.Labels.Positive)
	lex.Labels.Negative = normalizePhrases(lex.Labels.Negative)
	lex.Cues.Misinformation = normalizePhrases(lex.Cues.Misinformation)
	lex.Cues.Authority = normalizePhrases(lex.Cues.Authority)
	if err := lex.Validate(); err != nil {
		return Lexicon{}, err
	}
	return lex, nil
}

// Validate ensures the lexicon carries enough data to classify anything.
func (l Lexicon) Validate() error {
	if len(l.Labels.Positive) == 0 || len(l.Labels.Negative) == 0 {
		return errors.New("lexicon label vocabulary missing")
	}
	if len(l.Cues.Misinformation) == 0 || len(l.Cues.Authority) == 0 {
		return errors.New("lexicon cue lists missing")
	}
	for _, t := range []float64{l.Thresholds.Labeled, l.Thresholds.Unlabeled} {
		if t <= 0 || t > 1 {
			return fmt.Errorf("lexicon threshold %.2f outside (0,1]", t)
		}
	}
	return nil
}

func normalizePhrases(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, phrase := range in {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		if _, ok := seen[phrase]; ok {
			continue
		}
		seen[phrase] = struct{}{}
		out = append(out, phrase)
	}
	return out
}
