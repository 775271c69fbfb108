package api

import (
	"time"

	"disaster-relief/backend/internal/scoring"
	"disaster-relief/backend/internal/store"
)

// RumorCheckRequest is the body of POST /api/rumor-check.
type RumorCheckRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
	Context string `json:"context" binding:"max=500"`
	Source  string `json:"source" binding:"max=300"`
}

// RumorCheckResponse wraps a verdict with boundary metadata.
type RumorCheckResponse struct {
	ID             string   `json:"id,omitempty"`
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
	RawLabel       string   `json:"raw_label"`
	Advice         string   `json:"advice"`
	Reasons        []string `json:"reasons"`
	Engine         string   `json:"engine"`
	EvaluatedAt    string   `json:"evaluated_at"`
	Error          string   `json:"error,omitempty"`
}

// ValidationErrorResponse reports which request fields were rejected.
type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// RumorCheckDTO is the API representation of a persisted rumor check.
type RumorCheckDTO struct {
	ID               string    `json:"id"`
	Message          string    `json:"message"`
	Context          string    `json:"context,omitempty"`
	Source           string    `json:"source,omitempty"`
	Classification   string    `json:"classification"`
	Confidence       float64   `json:"confidence"`
	RawLabel         string    `json:"raw_label"`
	Advice           string    `json:"advice"`
	Reasons          []string  `json:"reasons"`
	Engine           string    `json:"engine"`
	Error            string    `json:"error,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
}

// RumorChecksResponse is a page of the audit trail.
type RumorChecksResponse struct {
	Items []RumorCheckDTO `json:"items"`
	Total int64           `json:"total"`
}

// StatsResponse summarises stored rumor checks.
type StatsResponse struct {
	Total            int64            `json:"total"`
	ByClassification map[string]int64 `json:"by_classification"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
}

// ChatResponse carries the DisasterBot answer.
type ChatResponse struct {
	Response string `json:"response"`
	Engine   string `json:"engine"`
}

// NewRumorCheckResponse builds the response envelope for a verdict.
func NewRumorCheckResponse(id string, verdict scoring.Verdict, engine string, evaluatedAt time.Time, errMsg string) RumorCheckResponse {
	reasons := verdict.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return RumorCheckResponse{
		ID:             id,
		Classification: string(verdict.Classification),
		Confidence:     verdict.Confidence,
		RawLabel:       verdict.RawLabel,
		Advice:         verdict.Advice,
		Reasons:        reasons,
		Engine:         engine,
		EvaluatedAt:    evaluatedAt.UTC().Format(time.RFC3339),
		Error:          errMsg,
	}
}

// RumorCheckFromModel converts the persisted model into its API form.
func RumorCheckFromModel(m store.RumorCheck) RumorCheckDTO {
	reasons := m.Reasons()
	if reasons == nil {
		reasons = []string{}
	}
	return RumorCheckDTO{
		ID:               m.ID,
		Message:          m.Message,
		Context:          m.Context,
		Source:           m.Source,
		Classification:   m.Classification,
		Confidence:       m.Confidence,
		RawLabel:         m.RawLabel,
		Advice:           m.Advice,
		Reasons:          reasons,
		Engine:           m.Engine,
		Error:            m.Error,
		ProcessingTimeMs: m.ProcessingTimeMs,
		EvaluatedAt:      m.EvaluatedAt.UTC(),
	}
}
