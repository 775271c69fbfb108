package ai

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Classifier is a model-backed text scorer returning a label and a probability.
type Classifier interface {
	Enabled() bool
	Classify(ctx context.Context, text string) (Prediction, error)
}

// Prediction is one raw label/probability pair from a model.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

var (
	ErrDisabled        = errors.New("ai classifier disabled")
	ErrEmptyPrediction = errors.New("model returned no prediction")
)

// TopPrediction returns the highest-scored candidate.
func TopPrediction(candidates []Prediction) (Prediction, error) {
	if len(candidates) == 0 {
		return Prediction{}, ErrEmptyPrediction
	}
	sorted := append([]Prediction(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	top := sorted[0]
	top.Label = strings.TrimSpace(top.Label)
	if top.Label == "" {
		top.Label = "UNKNOWN"
	}
	return top, nil
}

// truncateRunes cuts text to at most limit runes. A non-positive limit keeps the text.
func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	count := 0
	for idx := range text {
		if count == limit {
			return text[:idx]
		}
		count++
	}
	return text
}
