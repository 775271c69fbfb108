package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"disaster-relief/backend/internal/ai"
	"disaster-relief/backend/internal/chat"
	"disaster-relief/backend/internal/rumor"
	"disaster-relief/backend/internal/scoring"
	"disaster-relief/backend/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	SilentDB       bool
	LexiconPath    string
	AllowedOrigins []string
	HuggingFace    ai.HuggingFaceConfig
	LLM            ai.Config
	DisableModel   bool
	ProbeModel     bool
	ProbeTimeout   time.Duration
	RedisURL       string
	AnalyzeTimeout time.Duration
}

// Server wires HTTP handlers with the analyzer, persistence and notifiers.
type Server struct {
	db             *store.Database
	analyzer       *rumor.Analyzer
	chat           *chat.Service
	notifier       *VerdictNotifier
	publisher      Publisher
	sanitizer      *bluemonday.Policy
	allowedOrigins []string
	analyzeTimeout time.Duration
	lexiconPath    string
	backends       []string
}

type serverDeps struct {
	db             *store.Database
	analyzer       *rumor.Analyzer
	chat           *chat.Service
	publisher      Publisher
	allowedOrigins []string
	analyzeTimeout time.Duration
	lexiconPath    string
	backends       []string
}

const (
	defaultAnalyzeTimeout = 45 * time.Second
	redisPingTimeout      = 3 * time.Second
)

// NewServer constructs the API server. The primary model is resolved once
// here; if it cannot be loaded the analyzer stays degraded until restart.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}

	lex := scoring.DefaultLexicon()
	if path := strings.TrimSpace(cfg.LexiconPath); path != "" {
		loaded, err := scoring.LoadLexicon(path)
		if err != nil {
			return nil, fmt.Errorf("lexicon: %w", err)
		}
		lex = loaded
	}

	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	var llm *ai.Client
	if client, err := ai.NewClient(cfg.LLM); err == nil {
		llm = client
	} else if !errors.Is(err, ai.ErrDisabled) {
		_ = db.Close()
		return nil, fmt.Errorf("llm client: %w", err)
	}

	primary, backends, err := buildPrimary(cfg, llm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if primary != nil && cfg.ProbeModel {
		timeout := cfg.ProbeTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := ai.Probe(ctx, primary); err != nil {
			logrus.WithError(err).Warn("primary rumor model failed startup probe")
			primary = nil
			backends = nil
		}
		cancel()
	}

	var responder ai.Responder
	if llm != nil {
		responder = llm
	} else {
		logrus.Info("chat model disabled - no GROQ_API_KEY configured, using keyword answers")
	}

	var publisher Publisher = nopPublisher{}
	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		redisPublisher, err := NewRedisPublisher(url)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis publisher: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err = redisPublisher.Ping(ctx)
		cancel()
		if err != nil {
			_ = redisPublisher.Close()
			_ = db.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		publisher = redisPublisher
		logrus.WithField("stream", VerdictStream).Info("publishing rumor verdicts to redis")
	}

	return newServer(serverDeps{
		db:             db,
		analyzer:       rumor.NewAnalyzer(primary, lex),
		chat:           chat.NewService(responder),
		publisher:      publisher,
		allowedOrigins: cfg.AllowedOrigins,
		analyzeTimeout: cfg.AnalyzeTimeout,
		lexiconPath:    cfg.LexiconPath,
		backends:       backends,
	}), nil
}

func newServer(deps serverDeps) *Server {
	if deps.publisher == nil {
		deps.publisher = nopPublisher{}
	}
	if deps.chat == nil {
		deps.chat = chat.NewService(nil)
	}
	if deps.analyzeTimeout <= 0 {
		deps.analyzeTimeout = defaultAnalyzeTimeout
	}
	return &Server{
		db:             deps.db,
		analyzer:       deps.analyzer,
		chat:           deps.chat,
		notifier:       NewVerdictNotifier(),
		publisher:      deps.publisher,
		sanitizer:      bluemonday.StrictPolicy(),
		allowedOrigins: deps.allowedOrigins,
		analyzeTimeout: deps.analyzeTimeout,
		lexiconPath:    deps.lexiconPath,
		backends:       deps.backends,
	}
}

// buildPrimary chains the configured model backends, Hugging Face first.
func buildPrimary(cfg Config, llm *ai.Client) (ai.Classifier, []string, error) {
	if cfg.DisableModel {
		logrus.Info("rumor model disabled via configuration")
		return nil, nil, nil
	}

	var (
		primary  ai.Classifier
		backends []string
	)
	hf, err := ai.NewHuggingFaceClient(cfg.HuggingFace)
	switch {
	case err == nil:
		primary = hf
		backends = append(backends, "huggingface:"+hf.Model())
	case errors.Is(err, ai.ErrDisabled):
		logrus.Info("hugging face classifier disabled - no HF_API_TOKEN configured")
	default:
		return nil, nil, fmt.Errorf("huggingface client: %w", err)
	}

	if llm != nil {
		primary = ai.WithFallback(primary, llm)
		backends = append(backends, "llm:"+llm.Model())
	}

	if len(backends) > 0 {
		logrus.WithField("backends", backends).Info("rumor model backends configured")
	}
	return primary, backends, nil
}

// Close releases the database handle.
func (s *Server) Close() error {
	if closer, ok := s.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Warn("close publisher")
		}
	}
	return s.db.Close()
}

// Analyzer exposes the rumor analyzer.
func (s *Server) Analyzer() *rumor.Analyzer {
	return s.analyzer
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/rumor-check", s.handleRumorCheck)
		api.GET("/rumor-checks", s.handleListRumorChecks)
		api.GET("/rumor-checks/stats", s.handleRumorStats)
		api.GET("/rumor-checks/stream", s.handleRumorStream)
		api.GET("/rumor-checks/:id", s.handleGetRumorCheck)
		api.POST("/chat", s.handleChat)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	backends := s.backends
	if backends == nil {
		backends = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"analyzer_state":     s.analyzer.State().String(),
		"engine":             s.analyzer.Engine(),
		"model_backends":     backends,
		"lexicon_path":       s.lexiconPath,
		"stream_subscribers": s.notifier.Subscribers(),
	})
}

func (s *Server) handleRumorStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("verdict websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("verdict websocket closed")
			} else {
				logrus.WithError(err).Warn("verdict websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Error: "Invalid chat request", Details: validationDetails(err)})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Invalid chat request",
			Details: map[string]string{"message": "Message cannot be empty"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.analyzeTimeout)
	defer cancel()
	reply := s.chat.Reply(ctx, message)
	c.JSON(http.StatusOK, ChatResponse{Response: reply.Text, Engine: reply.Engine})
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
