package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"assistantsproxy/internal/assistants"
	"assistantsproxy/internal/cache"
	"assistantsproxy/internal/client"
	"assistantsproxy/internal/config"
	"assistantsproxy/internal/core"
	"assistantsproxy/internal/metrics"
	"assistantsproxy/internal/version"

	"github.com/gin-gonic/gin"
)

// Server application server
type Server struct {
	port    string
	ginMode string

	httpClient *http.Client
	router     *gin.Engine

	configStore    core.ConfigStore
	metricsService *metrics.MetricsService
	collector      *metrics.Collector
	assistants     *assistants.Service

	validClientKeys map[string]bool

	config config.ServerConfig

	rateLimiter *rateLimiter

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	closeOnce      sync.Once
}

// NewServer creates a new server instance and publishes the endpoints config.
func NewServer(cfg config.ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required in ServerConfig")
	}
	if cfg.ConfigStore == nil {
		cfg.ConfigStore = cache.NewMemoryConfigStore(cfg.EndpointsCacheTTL)
	}

	httpClient := client.NewHTTPClient(cfg.HTTPClientSettings)
	collector := metrics.NewCollector()

	metricsService := metrics.NewMetricsService(metrics.MetricsConfig{
		SaveInterval: core.MinSaveInterval,
		HistorySize:  core.HistoryBufferSize,
		Storage:      cfg.Storage,
		Logger:       cfg.Logger,
	})

	if err := metricsService.LoadStats(); err != nil {
		cfg.Logger.Warn("Failed to load historical stats: %v", err)
	}

	versions := version.NewResolver(cfg.ConfigStore)

	var direct, azure client.Initializer
	if cfg.Assistants.Enabled() {
		direct = client.NewDirectInitializer(cfg.Assistants, httpClient)
	}
	if cfg.Azure.HasAssistants() {
		azure = client.NewAzureInitializer(cfg.Azure, httpClient)
	}

	service := assistants.NewService(assistants.Config{
		Versions: versions,
		Clients:  client.NewResolver(versions, direct, azure),
		Azure:    cfg.Azure,
		Observer: collector,
	})

	validClientKeys := make(map[string]bool)
	for _, key := range cfg.ClientAPIKeys {
		validClientKeys[key] = true
	}

	if len(validClientKeys) == 0 {
		cfg.Logger.Warn("No client API keys configured")
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = core.DefaultRateLimit
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	server := &Server{
		port:            cfg.Port,
		ginMode:         cfg.GinMode,
		httpClient:      httpClient,
		configStore:     cfg.ConfigStore,
		metricsService:  metricsService,
		collector:       collector,
		assistants:      service,
		validClientKeys: validClientKeys,
		config:          cfg,
		rateLimiter:     newRateLimiter(shutdownCtx, rateLimit),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
	}

	if _, err := server.publishEndpointsConfig(shutdownCtx); err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("failed to publish endpoints config: %w", err)
	}

	server.setupRoutes()

	return server, nil
}

// publishEndpointsConfig writes the endpoints config derived from the loaded
// configuration into the config store.
func (s *Server) publishEndpointsConfig(ctx context.Context) (core.EndpointsConfig, error) {
	endpoints := config.BuildEndpointsConfig(s.config.Endpoints, s.config.Assistants.Enabled(), s.config.Azure)
	if err := s.configStore.SetEndpointsConfig(ctx, endpoints); err != nil {
		return nil, err
	}
	s.config.Logger.Info("Published endpoints config: %v", endpointNames(endpoints))
	return endpoints, nil
}

func endpointNames(cfg core.EndpointsConfig) []string {
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run runs the server
func (s *Server) Run() error {
	s.setupGracefulShutdown()

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: core.ServerReadHeaderTimeout,
		ReadTimeout:       core.ServerReadTimeout,
		WriteTimeout:      core.ServerWriteTimeout,
	}

	go func() {
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), core.ServerShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.config.Logger.Error("Server shutdown error: %v", err)
		}
	}()

	s.config.Logger.Info("Server starting on port %s", s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			s.config.Logger.Info("Shutdown signal received, shutting down gracefully...")
			s.shutdownCancel()
		case <-s.shutdownCtx.Done():
		}
		signal.Stop(quit)
	}()
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getStatsData(c *gin.Context) {
	stats := s.metricsService.GetRequestStats()
	periodStats := metrics.GetPeriodStats(stats.RequestHistory, 24, 24*7, 24*30)
	currentQPS := s.metricsService.GetQPS()

	var endpoints []gin.H
	if s.config.Assistants.Enabled() {
		endpoints = append(endpoints, gin.H{
			"name":   core.EndpointAssistants.String(),
			"groups": []string{core.DirectGroupLabel},
		})
	}
	if s.config.Azure.HasAssistants() {
		endpoints = append(endpoints, gin.H{
			"name":   core.EndpointAzureAssistants.String(),
			"groups": s.config.Azure.AssistantGroups,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"currentTime":     time.Now().Format(core.TimeFormatDateTime),
		"currentQPS":      fmt.Sprintf("%.3f", currentQPS),
		"totalRecords":    len(stats.RequestHistory),
		"totalRequests":   stats.TotalRequests,
		"totalAssistants": stats.TotalAssistants,
		"stats24h":        periodStats[24],
		"stats7d":         periodStats[24*7],
		"stats30d":        periodStats[24*30],
		"endpoints":       endpoints,
	})
}

// Close closes the server. It is safe to call more than once.
func (s *Server) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		if s.shutdownCancel != nil {
			s.shutdownCancel()
		}

		if s.metricsService != nil {
			if err := s.metricsService.Close(); err != nil {
				closeErr = errors.Join(closeErr, fmt.Errorf("close metrics service: %w", err))
			}
		}

		if s.configStore != nil {
			if err := s.configStore.Close(); err != nil {
				closeErr = errors.Join(closeErr, fmt.Errorf("close config store: %w", err))
			}
		}

		if s.httpClient != nil {
			s.httpClient.CloseIdleConnections()
		}
	})
	return closeErr
}
