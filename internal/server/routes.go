package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.httpMetricsMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())
	s.router.Use(s.rateLimitMiddleware())

	// Public routes (no auth)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/api/stats", s.getStatsData)
	s.router.GET("/metrics", gin.WrapH(s.collector.Handler()))

	// API routes (auth required)
	api := s.router.Group("/api")
	api.Use(s.authenticateClient)
	{
		api.GET("/endpoints", s.getEndpoints)

		for _, path := range []string{"/assistants", "/assistants/v1", "/assistants/v2"} {
			group := api.Group(path)
			group.GET("", s.listAssistants(group.BasePath()))
		}
	}
}
