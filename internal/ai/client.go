package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// Responder produces free-text answers for the DisasterBot chat.
type Responder interface {
	Enabled() bool
	Reply(ctx context.Context, message string) (string, error)
}

// Config holds configuration for an OpenAI-compatible chat completions API.
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	MaxInputRunes int
}

// Client talks to an OpenAI-compatible endpoint (Groq by default). It acts
// as a rumor Classifier and as the chat Responder.
type Client struct {
	httpClient    *http.Client
	apiKey        string
	model         string
	baseURL       string
	temperature   float64
	maxTokens     int
	maxInputRunes int
}

const (
	classifierPrompt = "You are a disaster misinformation analyst. Decide whether the supplied message is a credible report or a rumor. Reply with a strict JSON object containing keys label and score. label must be REAL or FAKE. score is your probability for that label as a decimal between 0 and 1. Emit nothing outside the JSON object."
	chatPrompt       = "You are DisasterBot, an AI assistant specialized in disaster management and emergency preparedness. Help with emergency procedures, safety tips, evacuation plans, and disaster response. Keep responses concise and practical."
)

// NewClient constructs a Client if the supplied configuration is valid.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = "llama-3.1-8b-instant"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxInputRunes <= 0 {
		cfg.MaxInputRunes = 8000
	}
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		apiKey:        strings.TrimSpace(cfg.APIKey),
		model:         cfg.Model,
		baseURL:       cfg.BaseURL,
		temperature:   temp,
		maxTokens:     cfg.MaxTokens,
		maxInputRunes: cfg.MaxInputRunes,
	}, nil
}

// Enabled reports whether the client can make outbound calls.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Classify asks the model for a REAL/FAKE label with a probability.
func (c *Client) Classify(ctx context.Context, text string) (Prediction, error) {
	if c == nil || !c.Enabled() {
		return Prediction{}, ErrDisabled
	}
	content, err := c.complete(ctx, classifierPrompt, truncateRunes(text, c.maxInputRunes), 0)
	if err != nil {
		return Prediction{}, err
	}
	block := normalizeJSONBlock(content)
	if block == "" {
		return Prediction{}, ErrEmptyPrediction
	}
	var prediction Prediction
	if err := json.Unmarshal([]byte(block), &prediction); err != nil {
		return Prediction{}, fmt.Errorf("parse ai response: %w", err)
	}
	if err := sanitizePrediction(&prediction); err != nil {
		return Prediction{}, err
	}
	return prediction, nil
}

// Reply answers a chat message as DisasterBot.
func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	if c == nil || !c.Enabled() {
		return "", ErrDisabled
	}
	content, err := c.complete(ctx, chatPrompt, truncateRunes(message, c.maxInputRunes), c.maxTokens)
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("ai empty reply")
	}
	return content, nil
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": c.temperature,
	}
	if maxTokens > 0 {
		payload["max_tokens"] = maxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return "", fmt.Errorf("chat completion status %d: %v", resp.StatusCode, apiErr)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat completion empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}

func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if strings.HasSuffix(trimmed, "```") {
			trimmed = trimmed[:len(trimmed)-3]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func sanitizePrediction(p *Prediction) error {
	p.Label = strings.ToUpper(strings.TrimSpace(p.Label))
	if p.Label == "" {
		return errors.New("ai label missing")
	}
	p.Score = clampFloat(p.Score, 0, 1)
	return nil
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
