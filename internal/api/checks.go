package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"disaster-relief/backend/internal/rumor"
	"disaster-relief/backend/internal/store"
	"disaster-relief/backend/internal/util"
)

const publishTimeout = 3 * time.Second

func (s *Server) handleRumorCheck(c *gin.Context) {
	var req RumorCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Error: "Invalid rumor check request", Details: validationDetails(err)})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Invalid rumor check request",
			Details: map[string]string{"message": "Message cannot be empty"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.analyzeTimeout)
	defer cancel()

	timer := util.StartTimer()
	verdict, err := s.analyzer.Analyze(ctx, rumor.Request{
		Message: req.Message,
		Context: req.Context,
		Source:  req.Source,
	})
	evaluatedAt := time.Now().UTC()

	status := http.StatusOK
	errMsg := ""
	if err != nil {
		status = http.StatusInternalServerError
		errMsg = err.Error()
	}

	record := store.RumorCheck{
		ID:               uuid.NewString(),
		Message:          s.sanitizer.Sanitize(req.Message),
		Context:          s.sanitizer.Sanitize(req.Context),
		Source:           s.sanitizer.Sanitize(req.Source),
		Classification:   string(verdict.Classification),
		Confidence:       verdict.Confidence,
		RawLabel:         verdict.RawLabel,
		Advice:           verdict.Advice,
		Engine:           s.analyzer.Engine(),
		Error:            errMsg,
		ProcessingTimeMs: timer.ElapsedMs(),
		EvaluatedAt:      evaluatedAt,
	}
	record.SetReasons(verdict.Reasons)

	logrus.WithFields(logrus.Fields{
		"id":             record.ID,
		"classification": record.Classification,
		"confidence":     record.Confidence,
		"engine":         record.Engine,
		"elapsed_ms":     record.ProcessingTimeMs,
	}).Info("rumor check evaluated")

	if err := s.db.SaveRumorCheck(&record); err != nil {
		logrus.WithError(err).WithField("id", record.ID).Warn("persist rumor check")
	}

	dto := RumorCheckFromModel(record)
	s.notifier.Broadcast(VerdictEvent{Type: "verdict", Check: &dto})

	pubCtx, pubCancel := context.WithTimeout(context.Background(), publishTimeout)
	if err := s.publisher.Publish(pubCtx, dto); err != nil {
		logrus.WithError(err).WithField("id", record.ID).Warn("publish rumor verdict")
	}
	pubCancel()

	c.JSON(status, NewRumorCheckResponse(record.ID, verdict, record.Engine, evaluatedAt, errMsg))
}

func (s *Server) handleListRumorChecks(c *gin.Context) {
	query := store.RumorCheckQuery{
		Classification: strings.TrimSpace(c.Query("classification")),
		Engine:         strings.TrimSpace(c.Query("engine")),
	}
	var err error
	if query.Limit, err = parseIntParam(c.Query("limit")); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid limit: %w", err))
		return
	}
	if query.Offset, err = parseIntParam(c.Query("offset")); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid offset: %w", err))
		return
	}

	checks, total, err := s.db.ListRumorChecks(query)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]RumorCheckDTO, 0, len(checks))
	for _, check := range checks {
		dtos = append(dtos, RumorCheckFromModel(check))
	}
	c.JSON(http.StatusOK, RumorChecksResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetRumorCheck(c *gin.Context) {
	check, err := s.db.GetRumorCheck(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, RumorCheckFromModel(*check))
}

func (s *Server) handleRumorStats(c *gin.Context) {
	counts, err := s.db.ClassificationCounts()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, StatsResponse{Total: total, ByClassification: counts})
}

// validationDetails maps binding failures onto per-field messages.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		details["body"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			details[field] = "field required"
		case "max":
			details[field] = fmt.Sprintf("must be at most %s characters", fe.Param())
		default:
			details[field] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	}
	return details
}

func parseIntParam(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must be non-negative")
	}
	return n, nil
}
