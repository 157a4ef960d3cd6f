// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/aegis-guard/aegis/internal/analyzer"
	"github.com/aegis-guard/aegis/internal/auth"
	"github.com/aegis-guard/aegis/internal/circuitbreaker"
	"github.com/aegis-guard/aegis/internal/config"
	"github.com/aegis-guard/aegis/internal/detector"
	"github.com/aegis-guard/aegis/internal/executor"
	"github.com/aegis-guard/aegis/internal/health"
	"github.com/aegis-guard/aegis/internal/logging"
	"github.com/aegis-guard/aegis/internal/metrics"
	"github.com/aegis-guard/aegis/internal/monitor"
	"github.com/aegis-guard/aegis/internal/narrative"
	"github.com/aegis-guard/aegis/internal/orchestrator"
	"github.com/aegis-guard/aegis/internal/permissions"
	"github.com/aegis-guard/aegis/internal/proofledger"
	"github.com/aegis-guard/aegis/internal/ratelimit"
	"github.com/aegis-guard/aegis/internal/realtime"
	"github.com/aegis-guard/aegis/internal/retry"
	"github.com/aegis-guard/aegis/internal/riskscore"
	"github.com/aegis-guard/aegis/internal/security"
	"github.com/aegis-guard/aegis/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	perms        permissions.Store
	authMgr      *auth.Manager
	ledger       *proofledger.Ledger
	detector     *detector.Detector
	analyzer     *analyzer.Analyzer
	executor     *executor.Executor
	orch         *orchestrator.Orchestrator
	monitor      *monitor.Monitor
	realtimeHub  *realtime.Hub
	healthReg    *health.Registry
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Injected before New wires the pipeline
	registry  *executor.Registry
	positions detector.PositionSource
	approvals detector.ApprovalSource
	activity  detector.ActivitySource

	price     analyzer.PriceProvider
	liquidity analyzer.LiquidityProvider
	behavior  analyzer.BehaviorProvider
	incentive analyzer.IncentiveProvider
	trust     analyzer.TrustProvider

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSources sets the detector's data sources (for testing, or real chain
// indexers in production)
func WithSources(positions detector.PositionSource, approvals detector.ApprovalSource, activity detector.ActivitySource) Option {
	return func(s *Server) {
		s.positions = positions
		s.approvals = approvals
		s.activity = activity
	}
}

// WithProviders sets the analyzer's metric providers
func WithProviders(price analyzer.PriceProvider, liquidity analyzer.LiquidityProvider,
	behavior analyzer.BehaviorProvider, incentive analyzer.IncentiveProvider,
	trust analyzer.TrustProvider) Option {
	return func(s *Server) {
		s.price = price
		s.liquidity = liquidity
		s.behavior = behavior
		s.incentive = incentive
		s.trust = trust
	}
}

// WithAdapterRegistry sets the execution adapter registry
func WithAdapterRegistry(reg *executor.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set sources/registry/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var ledgerStore proofledger.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection, retrying while the database comes up
		if err := retry.Do(ctx, 5, 500*time.Millisecond, func() error {
			return db.PingContext(ctx)
		}); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		permStore := permissions.NewPostgresStore(db)
		if err := permStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate permissions store", "error", err)
		}
		s.perms = permStore

		pgLedger := proofledger.NewPostgresStore(db)
		if err := pgLedger.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate decision ledger store", "error", err)
		}
		ledgerStore = pgLedger

		authStore := auth.NewPostgresStore(db)
		if err := authStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate auth store", "error", err)
		}
		s.authMgr = auth.NewManager(authStore)
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		s.perms = permissions.NewMemoryStore()
		ledgerStore = proofledger.NewMemoryStore()
		s.authMgr = auth.NewManager(auth.NewMemoryStore())
	}

	s.ledger = proofledger.New(ledgerStore)

	// Default to simulated sources when none injected (demo mode)
	if s.positions == nil {
		s.logger.Info("using simulated chain sources (demo mode)")
		s.positions = &detector.SimulatedPositions{}
		s.approvals = &detector.SimulatedApprovals{}
		s.activity = &detector.SimulatedActivity{}
	}
	if s.price == nil {
		providers := analyzer.NewSimulatedProviders()
		s.price, s.liquidity, s.behavior = providers, providers, providers
		s.incentive, s.trust = providers, providers
	}
	if s.registry == nil {
		reg, _ := executor.NewSimulatedRegistry()
		s.registry = reg
	}

	checkTimeout := time.Duration(cfg.CheckTimeoutSeconds) * time.Second
	s.detector = detector.New(s.positions, s.approvals, s.activity).
		WithCheckTimeout(checkTimeout).
		WithLogger(s.logger)
	s.analyzer = analyzer.New(s.price, s.liquidity, s.behavior, s.incentive, s.trust).
		WithFetchTimeout(checkTimeout).
		WithBreaker(circuitbreaker.New(5, 30*time.Second)).
		WithLogger(s.logger)
	s.executor = executor.New(s.registry, s.ledger).
		WithDispatchTimeout(time.Duration(cfg.DispatchTimeoutSeconds) * time.Second).
		WithLogger(s.logger)

	// Create realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	s.orch = orchestrator.New(s.perms, s.detector, s.analyzer, s.ledger, s.executor).
		WithHub(s.realtimeHub).
		WithLogger(s.logger)

	// Background scans for wallets that enabled auto-analysis
	s.monitor = monitor.New(monitor.DefaultConfig(), s.perms, s.orch, s.logger)

	// Health checks
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			if err := s.db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}

	s.logger.Info("API authentication enabled")

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(security.CORSMiddleware(origins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limitCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPS > 0 {
		limitCfg.RequestsPerMinute = s.cfg.RateLimitRPS * 60
		limitCfg.BurstSize = s.cfg.RateLimitRPS
	}
	s.rateLimiter = ratelimit.New(limitCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")
	// Validate :wallet URL params on all v1 routes (no-op when param absent)
	v1.Use(validation.WalletParamMiddleware())

	// PUBLIC ROUTES (no auth required)
	v1.POST("/risk/score", s.riskScoreHandler)

	proofHandler := proofledger.NewHandler(s.ledger)
	proofHandler.RegisterRoutes(v1)

	// ENROLLMENT (public but returns API key)
	v1.POST("/wallets", s.enrollWallet)

	// AUTH INFO (public)
	authHandler := auth.NewHandler(s.authMgr)
	v1.GET("/auth/info", authHandler.Info)

	// PROTECTED ROUTES (require API key scoped to the target wallet)
	permHandler := permissions.NewHandler(s.perms)
	protected := v1.Group("")
	protected.Use(auth.Middleware(s.authMgr))
	{
		protected.POST("/scan/:wallet", auth.RequireOwnership(s.authMgr, "wallet"), s.scanHandler)
		protected.POST("/scan/:wallet/execute", auth.RequireOwnership(s.authMgr, "wallet"), s.executeHandler)

		protected.GET("/permissions/:wallet", auth.RequireOwnership(s.authMgr, "wallet"), permHandler.GetConfig)
		protected.PUT("/permissions/:wallet", auth.RequireOwnership(s.authMgr, "wallet"), permHandler.PutConfig)

		// API key management
		protected.GET("/auth/keys", authHandler.ListKeys)
		protected.POST("/auth/keys", authHandler.CreateKey)
		protected.DELETE("/auth/keys/:keyId", authHandler.RevokeKey)
		protected.POST("/auth/keys/:keyId/regenerate", authHandler.RegenerateKey)
		protected.GET("/auth/me", authHandler.GetCurrentWallet)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// enrollWallet handles POST /v1/wallets
// Creates a default permission snapshot for the wallet and returns an API key
func (s *Server) enrollWallet(c *gin.Context) {
	ctx := c.Request.Context()

	var req struct {
		Address string `json:"address" binding:"required"`
		Name    string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if !validation.IsValidWalletAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_wallet",
			"message": "address must be a valid wallet address (0x + 40 hex chars)",
		})
		return
	}
	req.Name = validation.SanitizeString(req.Name, 200)

	subject := validation.SanitizeAddress(req.Address)
	if _, err := s.perms.Get(ctx, subject); err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "wallet_exists",
			"message": "This wallet is already enrolled",
		})
		return
	} else if !errors.Is(err, permissions.ErrSnapshotNotFound) {
		s.logger.Error("failed to check wallet enrollment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to enroll wallet",
		})
		return
	}

	snap := s.defaultSnapshot(subject)
	if err := s.perms.Put(ctx, snap); err != nil {
		s.logger.Error("failed to create permission snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to enroll wallet",
		})
		return
	}

	keyName := "Primary key"
	if req.Name != "" {
		keyName = req.Name
	}
	rawKey, keyInfo, err := s.authMgr.GenerateKey(ctx, subject, keyName)
	if err != nil {
		s.logger.Error("failed to generate API key", "error", err)
		c.JSON(http.StatusCreated, gin.H{
			"permissions": snap,
			"warning":     "Wallet enrolled but API key generation failed. Contact support.",
		})
		return
	}

	s.logger.Info("wallet enrolled",
		"wallet", subject,
		"keyId", keyInfo.ID,
	)

	c.JSON(http.StatusCreated, gin.H{
		"permissions": snap,
		"apiKey":      rawKey,
		"keyId":       keyInfo.ID,
		"warning":     "Store this API key securely. It will not be shown again.",
		"usage":       "Include 'Authorization: Bearer <apiKey>' header in requests.",
	})
}

// defaultSnapshot builds the conservative default permission configuration
// for a newly enrolled wallet: monitoring on, all automatic responses off.
func (s *Server) defaultSnapshot(subject string) *permissions.Snapshot {
	return &permissions.Snapshot{
		Subject:                  subject,
		MonitoringEnabled:        true,
		ILThresholdBps:           s.cfg.ILThresholdBps,
		HealthFactorThresholdBps: s.cfg.HealthFactorThresholdBps,
		DailyTxLimit:             s.cfg.DefaultDailyTxLimit,
		MaxSlippageBps:           s.cfg.DefaultMaxSlippageBps,
		UpdatedAt:                time.Now().UTC(),
	}
}

// scanHandler handles POST /v1/scan/:wallet
// Runs detection and analysis without executing any action
func (s *Server) scanHandler(c *gin.Context) {
	subject := c.Param("wallet")
	outcome := s.orch.Assess(c.Request.Context(), subject)
	s.renderOutcome(c, outcome)
}

// executeHandler handles POST /v1/scan/:wallet/execute
// Runs the full pipeline including authorized automatic responses
func (s *Server) executeHandler(c *gin.Context) {
	subject := c.Param("wallet")
	outcome := s.orch.DetectAndRespond(c.Request.Context(), subject)
	s.renderOutcome(c, outcome)
}

func (s *Server) renderOutcome(c *gin.Context, outcome *orchestrator.Outcome) {
	if outcome.Status == orchestrator.StatusError {
		status := http.StatusInternalServerError
		if outcome.Error == "monitoring disabled for subject" {
			status = http.StatusConflict
		} else if strings.HasPrefix(outcome.Error, "permission snapshot") {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "scan_failed",
			"message": outcome.Error,
			"outcome": outcome,
		})
		return
	}

	// Attach narratives so clients can render summaries without recomputing
	narratives := make([]string, len(outcome.Analyses))
	for i, a := range outcome.Analyses {
		narratives[i] = narrative.ForAnalysis(a.Result)
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome":    outcome,
		"narratives": narratives,
	})
}

// riskScoreHandler handles POST /v1/risk/score
// Scores a set of pool metrics without any threat context
func (s *Server) riskScoreHandler(c *gin.Context) {
	var m riskscore.PoolMetrics
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a pool metrics object",
		})
		return
	}

	bd := riskscore.Score(&m)
	c.JSON(http.StatusOK, gin.H{
		"breakdown": bd,
		"narrative": narrative.ForScore(bd),
	})
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.healthReg.CheckAll(ctx)

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Aegis",
		"description": "DeFi risk monitoring with proof-before-action automated responses",
		"version":     "0.1.0",
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	if s.realtimeHub != nil {
		go s.realtimeHub.Run(runCtx)
	}

	// Start background monitor for auto-analysis subjects
	if s.monitor != nil {
		s.monitor.Start(runCtx)
	}

	// Sample DB pool stats into Prometheus
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
