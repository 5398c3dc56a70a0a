// Package httpserver wires the gin engine, middlewares and routes.
package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutorchat/internal/config"
	"tutorchat/internal/interfaces/httpserver/handlers/chathandler"
	"tutorchat/internal/interfaces/httpserver/middlewares"
)

// HTTPServer serves the chat engine API.
type HTTPServer struct {
	engine      *gin.Engine
	chatHandler *chathandler.ChatHandler
	config      *config.Config
}

// NewHTTPServer creates the server with its middleware chain and routes.
func NewHTTPServer(chatHandler *chathandler.ChatHandler, cfg *config.Config, logger zerolog.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := &HTTPServer{
		engine:      gin.New(),
		chatHandler: chatHandler,
		config:      cfg,
	}

	server.engine.Use(gin.Recovery())
	server.engine.Use(middlewares.RequestID())
	server.engine.Use(middlewares.Logging(logger))
	server.engine.Use(middlewares.CORS())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.engine.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := server.engine.Group("/v1")
	v1.POST("/chat/messages", chatHandler.SendMessage)
	v1.POST("/chat/messages/stream", chatHandler.StreamMessage)
	v1.DELETE("/conversations/:id/context", chatHandler.InvalidateContext)

	return server
}

// Run blocks serving HTTP until the listener fails.
func (s *HTTPServer) Run() error {
	return s.engine.Run(fmt.Sprintf(":%d", s.config.HTTPPort))
}
