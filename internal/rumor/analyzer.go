// Package rumor decides whether a disaster-related message is credible. It
// routes every analysis to the primary model when one was available at
// startup and to the lexicon heuristic otherwise.
package rumor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"disaster-relief/backend/internal/ai"
	"disaster-relief/backend/internal/scoring"
)

// State is the analyzer's routing mode, fixed at construction.
type State int

const (
	// Ready routes every call to the primary model.
	Ready State = iota
	// Degraded routes every call to the heuristic; the model is never invoked.
	Degraded
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	EngineModel     = "model"
	EngineHeuristic = "heuristic"
)

// ErrInference marks a failed primary-model call. It affects only that call.
var ErrInference = errors.New("rumor inference failed")

// Request is the caller-supplied input for one analysis.
type Request struct {
	Message string
	Context string
	Source  string
}

// ComposeText joins the optional context and source onto the message as
// suffix lines. Both classifiers receive the same composed text.
func ComposeText(req Request) string {
	text := req.Message
	if req.Context != "" {
		text += "\nContext: " + req.Context
	}
	if req.Source != "" {
		text += "\nSource: " + req.Source
	}
	return text
}

// Analyzer is safe for concurrent use; it holds no per-call state.
type Analyzer struct {
	primary    ai.Classifier
	normalizer *scoring.LabelNormalizer
	heuristic  *scoring.HeuristicScorer
	state      State
}

// NewAnalyzer builds an analyzer. A nil or disabled primary puts it in the
// Degraded state for its whole lifetime.
func NewAnalyzer(primary ai.Classifier, lex scoring.Lexicon) *Analyzer {
	a := &Analyzer{
		normalizer: scoring.NewLabelNormalizer(lex),
		heuristic:  scoring.NewHeuristicScorer(lex),
		state:      Degraded,
	}
	if primary != nil && primary.Enabled() {
		a.primary = primary
		a.state = Ready
		logrus.Info("rumor analyzer ready: primary model loaded")
	} else {
		logrus.Warn("rumor analyzer degraded: primary model unavailable, using heuristic classifier")
	}
	return a
}

// State reports the routing mode chosen at construction.
func (a *Analyzer) State() State {
	return a.state
}

// Engine names the classifier that serves calls in the current state.
func (a *Analyzer) Engine() string {
	if a.state == Ready {
		return EngineModel
	}
	return EngineHeuristic
}

// Analyze composes the request text and classifies it.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (scoring.Verdict, error) {
	return a.AnalyzeText(ctx, ComposeText(req))
}

// AnalyzeText classifies already-composed text. It always returns a usable
// verdict: when the primary model fails, the verdict has classification
// Error and the returned error wraps ErrInference.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (scoring.Verdict, error) {
	if a.state == Degraded {
		return a.heuristic.Score(text), nil
	}

	prediction, err := a.classify(ctx, text)
	if err != nil {
		logrus.WithError(err).Warn("rumor inference failed")
		return scoring.ErrorVerdict(), fmt.Errorf("%w: %w", ErrInference, err)
	}
	return a.normalizer.Normalize(prediction.Label, prediction.Score), nil
}

func (a *Analyzer) classify(ctx context.Context, text string) (prediction ai.Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return a.primary.Classify(ctx, text)
}
