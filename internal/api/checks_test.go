package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disaster-relief/backend/internal/ai"
	"disaster-relief/backend/internal/chat"
	"disaster-relief/backend/internal/rumor"
	"disaster-relief/backend/internal/scoring"
	"disaster-relief/backend/internal/store"
)

type stubModel struct {
	prediction ai.Prediction
	err        error
}

func (s stubModel) Enabled() bool { return true }

func (s stubModel) Classify(ctx context.Context, text string) (ai.Prediction, error) {
	return s.prediction, s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	checks []RumorCheckDTO
}

func (p *recordingPublisher) Publish(ctx context.Context, check RumorCheckDTO) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks = append(p.checks, check)
	return nil
}

func newTestServer(t *testing.T, model ai.Classifier) (*Server, *gin.Engine, *recordingPublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"), true)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	srv := newServer(serverDeps{
		db:        db,
		analyzer:  rumor.NewAnalyzer(model, scoring.DefaultLexicon()),
		chat:      chat.NewService(nil),
		publisher: publisher,
	})
	t.Cleanup(func() { _ = srv.Close() })

	router, err := srv.Router()
	require.NoError(t, err)
	return srv, router, publisher
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRumorCheckHeuristic(t *testing.T) {
	_, router, publisher := newTestServer(t, nil)

	rec := postJSON(t, router, "/api/rumor-check", RumorCheckRequest{
		Message: "  Forward this to everyone: free money at the relief office  ",
		Source:  "WhatsApp",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp RumorCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Fake", resp.Classification)
	assert.Equal(t, 78.0, resp.Confidence)
	assert.Equal(t, scoring.HeuristicLabel, resp.RawLabel)
	assert.Equal(t, rumor.EngineHeuristic, resp.Engine)
	assert.Empty(t, resp.Error)
	assert.Len(t, resp.Reasons, 3)
	_, err := time.Parse(time.RFC3339, resp.EvaluatedAt)
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.EvaluatedAt, "Z"))

	rec = get(router, "/api/rumor-checks/"+resp.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored RumorCheckDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "Forward this to everyone: free money at the relief office", stored.Message)
	assert.Equal(t, "WhatsApp", stored.Source)
	assert.Equal(t, resp.Reasons, stored.Reasons)

	require.Len(t, publisher.checks, 1)
	assert.Equal(t, resp.ID, publisher.checks[0].ID)
}

func TestRumorCheckPrimaryModel(t *testing.T) {
	_, router, _ := newTestServer(t, stubModel{prediction: ai.Prediction{Label: "LABEL_1", Score: 0.9}})

	rec := postJSON(t, router, "/api/rumor-check", RumorCheckRequest{Message: "IMD issues cyclone warning for the coast"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp RumorCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Real", resp.Classification)
	assert.Equal(t, 90.0, resp.Confidence)
	assert.Equal(t, "LABEL_1", resp.RawLabel)
	assert.Equal(t, rumor.EngineModel, resp.Engine)
	assert.Equal(t, []string{"Model label: LABEL_1", "Confidence: 90.0%"}, resp.Reasons)
}

func TestRumorCheckInferenceFailure(t *testing.T) {
	srv, router, _ := newTestServer(t, stubModel{err: errors.New("model crashed")})

	rec := postJSON(t, router, "/api/rumor-check", RumorCheckRequest{Message: "Dam gates opening tonight"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp RumorCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Error", resp.Classification)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Equal(t, scoring.ErrorLabel, resp.RawLabel)
	assert.Equal(t, []string{"System error occurred"}, resp.Reasons)
	assert.Contains(t, resp.Error, "model crashed")
	assert.Equal(t, rumor.Ready, srv.Analyzer().State())

	rec = get(router, "/api/rumor-checks?classification=Error")
	require.Equal(t, http.StatusOK, rec.Code)
	var page RumorChecksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, int64(1), page.Total)
	assert.Contains(t, page.Items[0].Error, "model crashed")
}

func TestRumorCheckValidation(t *testing.T) {
	_, router, _ := newTestServer(t, nil)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing message", RumorCheckRequest{}, "message"},
		{"blank message", RumorCheckRequest{Message: "   "}, "message"},
		{"message too long", RumorCheckRequest{Message: strings.Repeat("a", 2001)}, "message"},
		{"context too long", RumorCheckRequest{Message: "ok", Context: strings.Repeat("c", 501)}, "context"},
		{"source too long", RumorCheckRequest{Message: "ok", Source: strings.Repeat("s", 301)}, "source"},
		{"malformed json", "{", "body"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/rumor-check", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ValidationErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "Invalid rumor check request", resp.Error)
			assert.Contains(t, resp.Details, tc.field)
		})
	}
}

func TestRumorCheckSanitizesStoredText(t *testing.T) {
	_, router, _ := newTestServer(t, nil)

	rec := postJSON(t, router, "/api/rumor-check", RumorCheckRequest{Message: "<b>Flood</b> alert near dam"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RumorCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = get(router, "/api/rumor-checks/"+resp.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored RumorCheckDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "Flood alert near dam", stored.Message)
}

func TestRumorChecksListAndStats(t *testing.T) {
	_, router, _ := newTestServer(t, nil)

	messages := []string{
		"Forward this to all, free money for victims",
		"Unverified claim about the ministry",
		"Pay to get aid, share this immediately",
	}
	for _, m := range messages {
		rec := postJSON(t, router, "/api/rumor-check", RumorCheckRequest{Message: m})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := get(router, "/api/rumor-checks?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var page RumorChecksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)

	rec = get(router, "/api/rumor-checks/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, map[string]int64{"Fake": 2, "Suspicious": 1}, stats.ByClassification)

	assert.Equal(t, http.StatusBadRequest, get(router, "/api/rumor-checks?limit=abc").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/api/rumor-checks/does-not-exist").Code)
}

func TestConfigReportsAnalyzerState(t *testing.T) {
	_, router, _ := newTestServer(t, nil)
	rec := get(router, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["analyzer_state"])
	assert.Equal(t, "heuristic", body["engine"])
}

func TestChatKeywordFallback(t *testing.T) {
	_, router, _ := newTestServer(t, nil)

	rec := postJSON(t, router, "/api/chat", ChatRequest{Message: "Earthquake just hit, what now?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Response, "DROP, COVER, and HOLD ON")
	assert.Equal(t, chat.EngineKeywords, resp.Engine)

	rec = postJSON(t, router, "/api/chat", ChatRequest{Message: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRumorStreamBroadcastsVerdicts(t *testing.T) {
	srv, router, _ := newTestServer(t, nil)
	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/rumor-checks/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.notifier.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := postJSON(t, router, "/api/rumor-check", RumorCheckRequest{Message: "Free money, forward this to neighbours"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event VerdictEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "verdict", event.Type)
	require.NotNil(t, event.Check)
	assert.Equal(t, "Fake", event.Check.Classification)
}

func TestRumorStreamSkipsEarlierVerdicts(t *testing.T) {
	srv, router, _ := newTestServer(t, nil)
	ts := httptest.NewServer(router)
	defer ts.Close()

	rec := postJSON(t, router, "/api/rumor-check", RumorCheckRequest{Message: "Unverified claim about the ministry"})
	require.Equal(t, http.StatusOK, rec.Code)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/rumor-checks/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.notifier.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec = postJSON(t, router, "/api/rumor-check", RumorCheckRequest{Message: "Pay to get aid, share this immediately"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event VerdictEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.NotNil(t, event.Check)
	assert.Equal(t, "Fake", event.Check.Classification)
	assert.Equal(t, "Pay to get aid, share this immediately", event.Check.Message)
}

func TestVerdictNotifierDropsClosedSubscribers(t *testing.T) {
	srv, router, _ := newTestServer(t, nil)
	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/rumor-checks/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.notifier.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.notifier.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)

	srv.notifier.Broadcast(VerdictEvent{Type: "verdict"})
	assert.Equal(t, 0, srv.notifier.Subscribers())
}
