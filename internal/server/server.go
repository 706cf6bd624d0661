package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/internal/api"
	"github.com/auditfix/auditfix-gateway/pkg/config"
	"github.com/auditfix/auditfix-gateway/pkg/middleware"
)

// APIPrefix is the group every RouteProvider registers under.
const APIPrefix = "/api"

// RouteProvider contributes routes to the /api group.
type RouteProvider interface {
	// RegisterRoutes adds the provider's routes to rg.
	RegisterRoutes(rg *gin.RouterGroup)

	// Name returns the provider name for logging
	Name() string
}

// Manager builds the router from its providers and runs the HTTP server
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	providers []RouteProvider
	limiter   *middleware.RateLimiter

	httpServer *http.Server
	router     *gin.Engine
}

// NewManager creates a new server manager
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		logger:    logger,
		providers: make([]RouteProvider, 0),
		limiter:   middleware.NewRateLimiter(cfg.RateLimit, logger),
	}
}

// AddProvider adds a RouteProvider to the manager.
// Call this before Start() or Router().
func (m *Manager) AddProvider(p RouteProvider) {
	m.providers = append(m.providers, p)
	m.logger.Debug("Added route provider", zap.String("name", p.Name()))
}

// Router returns the HTTP router, building it on first use.
func (m *Manager) Router() *gin.Engine {
	if m.router == nil {
		m.router = m.buildRouter()
	}
	return m.router
}

// Start builds the router and starts the HTTP server. Requests are not
// tied to ctx so that Shutdown can drain them.
func (m *Manager) Start(_ context.Context) error {
	if m.cfg.Logging.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := m.cfg.Server.Address()
	m.httpServer = &http.Server{
		Addr:        addr,
		Handler:     m.Router(),
		ReadTimeout: 30 * time.Second,
		// Analysis and fix generation wait on slow upstreams.
		WriteTimeout: m.writeTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		m.logger.Info("HTTP server listening", zap.String("address", addr))
		if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.httpServer == nil {
		return nil
	}
	if err := m.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}

func (m *Manager) writeTimeout() time.Duration {
	longest := max(m.cfg.Backend.TimeoutDuration(), m.cfg.Gemini.TimeoutDuration(), 3*m.cfg.GitHub.TimeoutDuration())
	return longest + 5*time.Second
}

// buildRouter creates the router with common middleware, status endpoints
// and the /api group
func (m *Manager) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(ginzap.RecoveryWithZap(m.logger, true))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(m.logger))
	if m.cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}
	router.Use(cors.New(m.corsConfig()))

	m.addStatusEndpoints(router)
	if m.cfg.Metrics.Enabled {
		router.GET(m.cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	group := router.Group(APIPrefix, middleware.RateLimitMiddleware(m.limiter))
	for _, p := range m.providers {
		m.logger.Info("Registering HTTP routes", zap.String("provider", p.Name()))
		p.RegisterRoutes(group)
	}

	return router
}

func (m *Manager) corsConfig() cors.Config {
	cfg := cors.Config{
		// One entry so the preflight header reads "POST, OPTIONS" rather
		// than the comma-joined "POST,OPTIONS".
		AllowMethods:              []string{"POST, OPTIONS"},
		AllowHeaders:              []string{"Content-Type"},
		ExposeHeaders:             []string{middleware.RequestIDHeader},
		MaxAge:                    time.Duration(m.cfg.CORS.MaxAge) * time.Second,
		OptionsResponseStatusCode: http.StatusOK,
	}
	origins := m.cfg.CORS.AllowedOrigins
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// addStatusEndpoints adds /health and /status routes
func (m *Manager) addStatusEndpoints(router *gin.Engine) {
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, api.NewStatusResponse())
	}
	router.GET("/health", handler)
	router.GET("/status", handler)
}
