package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"disaster-relief/backend/internal/ai"
	"disaster-relief/backend/internal/api"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	var analyzeTimeout time.Duration
	if timeout := os.Getenv("ANALYZE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			analyzeTimeout = d
		}
	}

	origins := []string{
		"http://localhost:5000",
		"http://127.0.0.1:5000",
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		origins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	cfg := api.Config{
		DBPath:         filepath.Join(dataDir, "rumor-checks.db"),
		LexiconPath:    strings.TrimSpace(os.Getenv("RUMOR_LEXICON_PATH")),
		AllowedOrigins: origins,
		HuggingFace:    ai.HuggingFaceConfigFromEnv(os.Getenv),
		LLM:            ai.ConfigFromEnv(os.Getenv),
		DisableModel:   ai.ModelDisabledFromEnv(os.Getenv),
		ProbeModel:     !strings.EqualFold(strings.TrimSpace(os.Getenv("MODEL_PROBE")), "false"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AnalyzeTimeout: analyzeTimeout,
	}

	if override := strings.TrimSpace(os.Getenv("RUMOR_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close server")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2000"
	}

	logrus.WithField("analyzer", server.Analyzer().State().String()).Infof("starting rumor check backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
