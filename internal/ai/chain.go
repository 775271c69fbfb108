package ai

import (
	"context"
	"errors"
	"fmt"
)

type classifierChain struct {
	primary  Classifier
	fallback Classifier
}

// WithFallback returns a classifier that first tries the primary backend and
// falls back to the other when the primary is disabled or its call fails.
func WithFallback(primary, fallback Classifier) Classifier {
	if isNil(primary) {
		return fallback
	}
	if isNil(fallback) {
		return primary
	}
	return &classifierChain{primary: primary, fallback: fallback}
}

func (c *classifierChain) Enabled() bool {
	if c == nil {
		return false
	}
	return c.primary.Enabled() || c.fallback.Enabled()
}

func (c *classifierChain) Classify(ctx context.Context, text string) (Prediction, error) {
	if c == nil {
		return Prediction{}, ErrDisabled
	}
	var primaryErr error
	if c.primary.Enabled() {
		prediction, err := c.primary.Classify(ctx, text)
		if err == nil {
			return prediction, nil
		}
		primaryErr = err
	}
	if c.fallback.Enabled() {
		prediction, err := c.fallback.Classify(ctx, text)
		if err == nil {
			return prediction, nil
		}
		if primaryErr != nil {
			return Prediction{}, errors.Join(primaryErr, err)
		}
		return Prediction{}, err
	}
	if primaryErr != nil {
		return Prediction{}, primaryErr
	}
	return Prediction{}, ErrDisabled
}

// probeText is a neutral sentence used to check that a model answers at all.
const probeText = "Officials report that relief shelters are open."

// Probe runs one classification to confirm the backend is usable.
func Probe(ctx context.Context, c Classifier) error {
	if isNil(c) || !c.Enabled() {
		return ErrDisabled
	}
	if _, err := c.Classify(ctx, probeText); err != nil {
		return fmt.Errorf("probe classification: %w", err)
	}
	return nil
}

// isNil catches both untyped nil and typed nil pointers stored in the interface.
func isNil(c Classifier) bool {
	switch v := c.(type) {
	case nil:
		return true
	case *Client:
		return v == nil
	case *HuggingFaceClient:
		return v == nil
	}
	return false
}
