package scoring

import "math"

// Classification is the credibility label assigned to a message.
type Classification string

const (
	Real       Classification = "Real"
	Suspicious Classification = "Suspicious"
	Fake       Classification = "Fake"
	// Error marks a failed analysis. It is never produced by a classifier.
	Error Classification = "Error"
)

// Valid reports whether c is one of the known classification values.
func (c Classification) Valid() bool {
	switch c {
	case Real, Suspicious, Fake, Error:
		return true
	}
	return false
}

const (
	HeuristicLabel = "HEURISTIC_ENGINE"
	ErrorLabel     = "ERROR"
	ErrorAdvice    = "Unable to process request at this time"
)

// Verdict is the normalized result of one rumor analysis.
type Verdict struct {
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	RawLabel       string         `json:"raw_label"`
	Advice         string         `json:"advice"`
	Reasons        []string       `json:"reasons"`
}

// ErrorVerdict is the verdict returned when an analysis could not complete.
func ErrorVerdict() Verdict {
	return Verdict{
		Classification: Error,
		Confidence:     0,
		RawLabel:       ErrorLabel,
		Advice:         ErrorAdvice,
		Reasons:        []string{"System error occurred"},
	}
}

var modelAdvice = map[Classification]string{
	Real:       "Looks credible. Still cross-check with official bulletins before acting.",
	Suspicious: "Mixed signals. Share only after confirming with trusted authorities.",
	Fake:       "Likely misinformation. Do not forward it — report to local admins instead.",
}

// AdviceFor returns the model-path recommendation for a classification.
func AdviceFor(c Classification) string {
	if advice, ok := modelAdvice[c]; ok {
		return advice
	}
	return ErrorAdvice
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func clampFloat(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
