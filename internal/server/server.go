package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aitex/internal/cache"
	"aitex/internal/config"
	"aitex/internal/core"
	"aitex/internal/metrics"
	"aitex/internal/process"
	"aitex/internal/upstream"

	"github.com/gin-gonic/gin"
)

// Server application server
type Server struct {
	port    string
	ginMode string

	httpClient *http.Client
	router     *gin.Engine

	results        *cache.ResultCache
	metricsService *metrics.MetricsService
	store          *config.Store

	validClientKeys map[string]bool

	service *process.Service

	config config.ServerConfig

	rateLimiter *rateLimiter

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required in ServerConfig")
	}

	httpClient := upstream.NewHTTPClient(cfg.HTTPClientSettings)

	metricsService := metrics.NewMetricsService(metrics.MetricsConfig{
		SaveInterval: core.MinSaveInterval,
		HistorySize:  core.HistoryBufferSize,
		Storage:      cfg.Storage,
		Logger:       cfg.Logger,
	})

	if err := metricsService.LoadStats(); err != nil {
		cfg.Logger.Warn("Failed to load historical stats: %v", err)
	}

	recognitionConfig := config.LoadRecognitionConfig(cfg.Storage, cfg.Logger)
	cfg.Logger.Info("Recognition %s via %s (%s), enabled=%v",
		recognitionConfig.ModelName, recognitionConfig.Provider, recognitionConfig.APIBaseURL, recognitionConfig.Enabled)

	store := config.NewStore(recognitionConfig)
	results := cache.NewResultCache(0, core.ResultCacheTTL)

	service := process.NewService(process.ServiceConfig{
		Store:   store,
		Client:  upstream.NewClient(httpClient, metricsService, cfg.Logger),
		Storage: cfg.Storage,
		Results: results,
		Metrics: metricsService,
		Logger:  cfg.Logger,
	})

	validClientKeys := make(map[string]bool)
	for _, key := range cfg.ClientAPIKeys {
		validClientKeys[key] = true
	}

	if len(validClientKeys) == 0 {
		cfg.Logger.Warn("No client API keys configured")
	} else {
		cfg.Logger.Info("Loaded %d client API keys", len(validClientKeys))
	}

	rateLimit := 120
	if envRate := os.Getenv("RATE_LIMIT"); envRate != "" {
		if parsed, parseErr := fmt.Sscanf(envRate, "%d", &rateLimit); parseErr != nil || parsed != 1 || rateLimit <= 0 {
			cfg.Logger.Warn("Invalid RATE_LIMIT value '%s', using default 120", envRate)
			rateLimit = 120
		}
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	server := &Server{
		port:            cfg.Port,
		ginMode:         cfg.GinMode,
		httpClient:      httpClient,
		results:         results,
		metricsService:  metricsService,
		store:           store,
		validClientKeys: validClientKeys,
		service:         service,
		config:          cfg,
		rateLimiter:     newRateLimiter(rateLimit),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
	}

	server.setupRoutes()

	return server, nil
}

// Run runs the server
func (s *Server) Run() error {
	s.setupGracefulShutdown()

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.config.HTTPClientSettings.RequestTimeout + 30*time.Second,
	}

	go func() {
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.config.Logger.Error("Server shutdown error: %v", err)
		}
	}()

	s.config.Logger.Info("Server starting on port %s", s.port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		s.config.Logger.Info("Shutdown signal received, shutting down gracefully...")
		s.shutdownCancel()
	}()
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "healthy"})
}

func (s *Server) getStatsData(c *gin.Context) {
	stats := s.metricsService.GetRequestStats()
	periodStats := metrics.GetPeriodStats(stats.RequestHistory, 24, 24*7, 24*30)
	currentQPS := s.metricsService.GetQPS()

	var avgUpstreamTime int64
	if stats.TotalRequests > 0 {
		avgUpstreamTime = stats.TotalUpstreamTime / stats.TotalRequests
	}

	active := s.store.Get()

	c.JSON(200, gin.H{
		"currentTime":     time.Now().Format(core.TimeFormatDateTime),
		"currentQPS":      fmt.Sprintf("%.3f", currentQPS),
		"totalRecords":    len(stats.RequestHistory),
		"totalRequests":   stats.TotalRequests,
		"invertedImages":  stats.InvertedImages,
		"upstreamErrors":  stats.UpstreamErrors,
		"avgUpstreamTime": avgUpstreamTime,
		"cachedResults":   s.results.Len(),
		"stats24h":        periodStats[24],
		"stats7d":         periodStats[24*7],
		"stats30d":        periodStats[24*30],
		"recognition": gin.H{
			"enabled":  active.Enabled,
			"provider": active.Provider,
			"model":    active.ModelName,
		},
	})
}

// Close closes the server
func (s *Server) Close() error {
	if s.shutdownCancel != nil {
		s.shutdownCancel()
	}

	var closeErr error

	if s.metricsService != nil {
		if err := s.metricsService.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close metrics service: %w", err))
		}
	}

	if s.results != nil {
		if err := s.results.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close result cache: %w", err))
		}
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	if s.httpClient != nil {
		s.httpClient.CloseIdleConnections()
	}

	return closeErr
}
