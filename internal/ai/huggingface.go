package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HuggingFaceConfig configures the hosted text-classification backend.
type HuggingFaceConfig struct {
	APIToken      string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	MaxInputRunes int
}

// HuggingFaceClient classifies text with a pretrained model served by the
// Hugging Face inference API.
type HuggingFaceClient struct {
	httpClient    *http.Client
	apiToken      string
	model         string
	endpoint      string
	maxInputRunes int
}

// NewHuggingFaceClient constructs a client if an API token is configured.
func NewHuggingFaceClient(cfg HuggingFaceConfig) (*HuggingFaceClient, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, ErrDisabled
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "raima2001/Fake-News-Detection-Roberta"
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co/models"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// RoBERTa accepts 512 tokens; 2000 runes stays under that for typical text.
	maxRunes := cfg.MaxInputRunes
	if maxRunes <= 0 {
		maxRunes = 2000
	}
	return &HuggingFaceClient{
		httpClient:    &http.Client{Timeout: timeout},
		apiToken:      strings.TrimSpace(cfg.APIToken),
		model:         model,
		endpoint:      baseURL + "/" + model,
		maxInputRunes: maxRunes,
	}, nil
}

// Enabled reports whether the client can make outbound calls.
func (c *HuggingFaceClient) Enabled() bool {
	return c != nil && c.apiToken != ""
}

// Model returns the configured model identifier.
func (c *HuggingFaceClient) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Classify runs inference and returns the top-ranked label. Input longer than
// the model accepts is truncated.
func (c *HuggingFaceClient) Classify(ctx context.Context, text string) (Prediction, error) {
	if c == nil || !c.Enabled() {
		return Prediction{}, ErrDisabled
	}

	body, err := json.Marshal(map[string]any{
		"inputs":     truncateRunes(text, c.maxInputRunes),
		"parameters": map[string]any{"truncation": true},
		"options":    map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return Prediction{}, fmt.Errorf("huggingface status %d: %v", resp.StatusCode, apiErr)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Prediction{}, fmt.Errorf("decode response: %w", err)
	}
	candidates, err := decodeCandidates(raw)
	if err != nil {
		return Prediction{}, err
	}
	return TopPrediction(candidates)
}

// decodeCandidates accepts both response shapes the inference API emits:
// a flat list of candidates or a list with one candidate list per input.
func decodeCandidates(raw json.RawMessage) ([]Prediction, error) {
	var nested [][]Prediction
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, ErrEmptyPrediction
		}
		return nested[0], nil
	}
	var flat []Prediction
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var single Prediction
	if err := json.Unmarshal(raw, &single); err == nil && single.Label != "" {
		return []Prediction{single}, nil
	}
	return nil, errors.New("huggingface response has unexpected shape")
}
