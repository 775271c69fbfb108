package scoring

import (
	"fmt"
	"strings"
)

// LabelNormalizer maps a model's raw label and probability onto a Verdict.
type LabelNormalizer struct {
	positive  map[string]struct{}
	negative  map[string]struct{}
	labeled   float64
	unlabeled float64
}

// NewLabelNormalizer builds a normalizer from the lexicon's label vocabulary.
func NewLabelNormalizer(lex Lexicon) *LabelNormalizer {
	labeled := lex.Thresholds.Labeled
	if labeled <= 0 {
		labeled = defaultLabeledThreshold
	}
	unlabeled := lex.Thresholds.Unlabeled
	if unlabeled <= 0 {
		unlabeled = defaultUnlabeledThreshold
	}
	return &LabelNormalizer{
		positive:  toSet(lex.Labels.Positive),
		negative:  toSet(lex.Labels.Negative),
		labeled:   labeled,
		unlabeled: unlabeled,
	}
}

// Classify applies the threshold rules. A label outside both vocabularies
// can reach Real or Suspicious but never Fake.
func (n *LabelNormalizer) Classify(label string, probability float64) Classification {
	key := strings.ToLower(strings.TrimSpace(label))
	if _, ok := n.positive[key]; ok {
		if probability >= n.labeled {
			return Real
		}
		return Suspicious
	}
	if _, ok := n.negative[key]; ok {
		if probability >= n.labeled {
			return Fake
		}
		return Suspicious
	}
	if probability >= n.unlabeled {
		return Real
	}
	return Suspicious
}

// Normalize converts raw model output into a Verdict.
func (n *LabelNormalizer) Normalize(label string, probability float64) Verdict {
	probability = clampFloat(probability, 0, 1)
	classification := n.Classify(label, probability)
	confidence := round1(probability * 100)
	return Verdict{
		Classification: classification,
		Confidence:     confidence,
		RawLabel:       label,
		Advice:         AdviceFor(classification),
		Reasons: []string{
			fmt.Sprintf("Model label: %s", label),
			fmt.Sprintf("Confidence: %s%%", formatPercent(confidence)),
		},
	}
}

// formatPercent renders a one-decimal value the way it is reported to users
// ("90.0", "54.9").
func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f", value)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range normalizePhrases(values) {
		set[v] = struct{}{}
	}
	return set
}
