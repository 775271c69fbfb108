package scoring

import (
	"fmt"
	"strings"
)

const (
	minHeuristicConfidence = 10
	maxHeuristicConfidence = 95
)

// HeuristicScorer is the lexicon-based fallback classifier. It needs no
// model and is a total function over its input.
type HeuristicScorer struct {
	misinformation []string
	authority      []string
}

// CueCounts reports how many distinct cues of each kind a text contains.
type CueCounts struct {
	Misinformation int
	Authority      int
	Words          int
}

// NewHeuristicScorer builds a scorer from the lexicon's cue lists.
func NewHeuristicScorer(lex Lexicon) *HeuristicScorer {
	return &HeuristicScorer{
		misinformation: normalizePhrases(lex.Cues.Misinformation),
		authority:      normalizePhrases(lex.Cues.Authority),
	}
}

// Count tallies cue hits. Each cue counts once no matter how often it repeats.
func (h *HeuristicScorer) Count(text string) CueCounts {
	lowered := strings.ToLower(text)
	return CueCounts{
		Misinformation: countHits(lowered, h.misinformation),
		Authority:      countHits(lowered, h.authority),
		Words:          len(strings.Fields(text)),
	}
}

// Score classifies text from its cue counts. Rules are checked in order and
// the first match wins.
func (h *HeuristicScorer) Score(text string) Verdict {
	counts := h.Count(text)
	misinfo, authority := counts.Misinformation, counts.Authority

	var (
		classification Classification
		confidence     float64
		advice         string
	)
	switch {
	case misinfo >= 2 && authority == 0:
		classification = Fake
		confidence = float64(68 + misinfo*5)
		advice = "Strong misinformation cues detected. Treat as fake and do not share."
	case authority >= 2 && misinfo == 0 && counts.Words > 25:
		classification = Real
		confidence = float64(60 + authority*6)
		advice = "Contains multiple credible authority cues. Still verify with official alerts."
	default:
		classification = Suspicious
		confidence = float64(45 + (authority-misinfo)*4)
		advice = "Mixed credibility signals. Cross-check with official bulletins before sharing."
	}

	return Verdict{
		Classification: classification,
		Confidence:     round1(clampFloat(confidence, minHeuristicConfidence, maxHeuristicConfidence)),
		RawLabel:       HeuristicLabel,
		Advice:         advice,
		Reasons: []string{
			"Heuristic fallback active (model unavailable).",
			fmt.Sprintf("Authority cues: %d", authority),
			fmt.Sprintf("Misinformation cues: %d", misinfo),
		},
	}
}

func countHits(lowered string, cues []string) int {
	hits := 0
	for _, cue := range cues {
		if strings.Contains(lowered, cue) {
			hits++
		}
	}
	return hits
}
