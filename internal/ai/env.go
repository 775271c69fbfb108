package ai

import (
	"strconv"
	"strings"
	"time"
)

// Getenv looks up one environment variable; os.Getenv satisfies it.
type Getenv func(key string) string

// HuggingFaceConfigFromEnv reads HF_API_TOKEN, HF_MODEL, HF_BASE_URL and
// HF_TIMEOUT. Unparseable values are left at their zero value so the client
// defaults apply.
func HuggingFaceConfigFromEnv(getenv Getenv) HuggingFaceConfig {
	cfg := HuggingFaceConfig{
		APIToken: strings.TrimSpace(getenv("HF_API_TOKEN")),
		Model:    strings.TrimSpace(getenv("HF_MODEL")),
		BaseURL:  strings.TrimSpace(getenv("HF_BASE_URL")),
	}
	if timeout := strings.TrimSpace(getenv("HF_TIMEOUT")); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

// ConfigFromEnv reads the Groq settings: GROQ_API_KEY, GROQ_MODEL,
// GROQ_BASE_URL, LLM_TEMPERATURE and LLM_MAX_TOKENS.
func ConfigFromEnv(getenv Getenv) Config {
	cfg := Config{
		APIKey:  strings.TrimSpace(getenv("GROQ_API_KEY")),
		Model:   strings.TrimSpace(getenv("GROQ_MODEL")),
		BaseURL: strings.TrimSpace(getenv("GROQ_BASE_URL")),
	}
	if temp := strings.TrimSpace(getenv("LLM_TEMPERATURE")); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			cfg.Temperature = v
		}
	}
	if maxTokens := strings.TrimSpace(getenv("LLM_MAX_TOKENS")); maxTokens != "" {
		if v, err := strconv.Atoi(maxTokens); err == nil {
			cfg.MaxTokens = v
		}
	}
	return cfg
}

// ModelDisabledFromEnv reports whether DISABLE_MODEL is set to true.
func ModelDisabledFromEnv(getenv Getenv) bool {
	return strings.EqualFold(strings.TrimSpace(getenv("DISABLE_MODEL")), "true")
}
