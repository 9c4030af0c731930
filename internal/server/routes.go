package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.rateLimitMiddleware())

	// Public routes (no auth)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/api/stats", s.getStatsData)

	// API routes (auth required)
	api := s.router.Group("/v1")
	api.Use(s.authenticateClient)
	{
		api.POST("/recognize", s.maxBodySizeMiddleware(MaxBodySize), s.recognize)
		api.GET("/recognitions/:id", s.getRecognition)
	}

	// Configuration bodies are small JSON documents
	configGroup := api.Group("/config")
	configGroup.Use(s.maxBodySizeMiddleware(maxConfigBodySize))
	{
		configGroup.GET("", s.getConfig)
		configGroup.PUT("", s.putConfig)
		configGroup.POST("/validate", s.validateConfig)
	}
}
