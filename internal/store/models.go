package store

import (
	"encoding/json"
	"strings"
	"time"
)

// RumorCheck is one persisted rumor analysis, kept for the admin audit trail.
type RumorCheck struct {
	ID               string `gorm:"primaryKey;size:36"`
	Message          string `gorm:"type:text"`
	Context          string `gorm:"type:text"`
	Source           string `gorm:"size:300"`
	Classification   string `gorm:"size:16;index"`
	Confidence       float64
	RawLabel         string `gorm:"size:128"`
	Advice           string `gorm:"size:255"`
	ReasonsJSON      string `gorm:"type:text"`
	Engine           string `gorm:"size:16;index"`
	Error            string `gorm:"type:text"`
	ProcessingTimeMs int64
	EvaluatedAt      time.Time `gorm:"index"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// SetReasons persists the reasons list as JSON.
func (r *RumorCheck) SetReasons(reasons []string) {
	if reasons == nil {
		r.ReasonsJSON = "[]"
		return
	}
	payload, _ := json.Marshal(reasons)
	r.ReasonsJSON = string(payload)
}

// Reasons returns the decoded reasons list.
func (r *RumorCheck) Reasons() []string {
	if strings.TrimSpace(r.ReasonsJSON) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(r.ReasonsJSON), &out); err != nil {
		return nil
	}
	return out
}

// RumorCheckQuery filters and pages the audit trail.
type RumorCheckQuery struct {
	Classification string
	Engine         string
	Limit          int
	Offset         int
}
