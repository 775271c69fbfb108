package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disaster-relief/backend/internal/ai"
	"disaster-relief/backend/internal/rumor"
)

func unavailableModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newConfiguredServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg.DBPath = filepath.Join(t.TempDir(), "server.db")
	cfg.SilentDB = true
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func configBody(t *testing.T, srv *Server) map[string]any {
	t.Helper()
	router, err := srv.Router()
	require.NoError(t, err)
	rec := get(router, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewServerStartupModelState(t *testing.T) {
	model := unavailableModelServer(t)
	hf := ai.HuggingFaceConfig{APIToken: "hf-token", Model: "org/model", BaseURL: model.URL}

	tests := []struct {
		name         string
		cfg          Config
		state        rumor.State
		engine       string
		backendCount int
	}{
		{
			name:   "failed probe degrades",
			cfg:    Config{HuggingFace: hf, ProbeModel: true, ProbeTimeout: 2 * time.Second},
			state:  rumor.Degraded,
			engine: rumor.EngineHeuristic,
		},
		{
			name:         "probe skipped keeps model",
			cfg:          Config{HuggingFace: hf},
			state:        rumor.Ready,
			engine:       rumor.EngineModel,
			backendCount: 1,
		},
		{
			name:   "disabled model",
			cfg:    Config{HuggingFace: hf, DisableModel: true},
			state:  rumor.Degraded,
			engine: rumor.EngineHeuristic,
		},
		{
			name:   "no credentials",
			cfg:    Config{ProbeModel: true},
			state:  rumor.Degraded,
			engine: rumor.EngineHeuristic,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newConfiguredServer(t, tc.cfg)
			assert.Equal(t, tc.state, srv.Analyzer().State())

			body := configBody(t, srv)
			assert.Equal(t, tc.engine, body["engine"])
			backends, ok := body["model_backends"].([]any)
			require.True(t, ok, "model_backends should be a list: %v", body["model_backends"])
			assert.Len(t, backends, tc.backendCount)
		})
	}
}

func TestRedisPublisherAppendsVerdict(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	publisher := NewRedisPublisherFromClient(rdb)
	t.Cleanup(func() { _ = publisher.Close() })

	ctx := context.Background()
	require.NoError(t, publisher.Ping(ctx))

	evaluatedAt := time.Date(2025, 8, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, publisher.Publish(ctx, RumorCheckDTO{
		ID:             "check-1",
		Message:        "Free money at the relief office",
		Classification: "Fake",
		Confidence:     78,
		RawLabel:       "HEURISTIC_ENGINE",
		Reasons:        []string{"Misinformation cues: 2"},
		Engine:         rumor.EngineHeuristic,
		EvaluatedAt:    evaluatedAt,
	}))

	entries, err := rdb.XRange(ctx, VerdictStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	values := entries[0].Values
	assert.Equal(t, "check-1", values["id"])
	assert.Equal(t, "Fake", values["classification"])
	assert.Equal(t, "78", values["confidence"])
	assert.Equal(t, "HEURISTIC_ENGINE", values["raw_label"])
	assert.Equal(t, rumor.EngineHeuristic, values["engine"])
	assert.Equal(t, `["Misinformation cues: 2"]`, values["reasons"])
	assert.Equal(t, "2025-08-14T09:30:00Z", values["evaluated_at"])
}

func TestNewServerPublishesToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	srv := newConfiguredServer(t, Config{DisableModel: true, RedisURL: "redis://" + mr.Addr()})
	router, err := srv.Router()
	require.NoError(t, err)

	rec := postJSON(t, router, "/api/rumor-check", RumorCheckRequest{Message: "Pay to get aid, share this immediately"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp RumorCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	entries, err := rdb.XRange(context.Background(), VerdictStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, resp.ID, entries[0].Values["id"])
	assert.Equal(t, "Fake", entries[0].Values["classification"])
}

func TestNewServerRejectsUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewServer(Config{
		DBPath:       filepath.Join(t.TempDir(), "server.db"),
		SilentDB:     true,
		DisableModel: true,
		RedisURL:     "redis://" + addr,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")

	_, err = NewServer(Config{
		DBPath:       filepath.Join(t.TempDir(), "server.db"),
		SilentDB:     true,
		DisableModel: true,
		RedisURL:     "not a url",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis publisher")
}
