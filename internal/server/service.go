// Package server exposes the OpenAI-compatible transcription HTTP API over an
// injected speech engine.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenprima/whisper-server/internal/conf"
	"github.com/lumenprima/whisper-server/internal/errors"
	"github.com/lumenprima/whisper-server/internal/speech"
)

type Service struct {
	conf   *conf.Config
	engine speech.Engine

	router *gin.Engine
	server *http.Server
}

// NewService wires the routes around the injected engine handle. The engine
// is created at startup and owns its own serialization; the service never
// touches model state directly.
func NewService(conf *conf.Config, engine speech.Engine) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("Failed to set trusted proxies")
	}

	router.Use(
		errors.RecoveryMiddleware(),
		errors.ErrorHandlerMiddleware(),
		gin.LoggerWithWriter(log.Logger, "/health"),
		corsMiddleware(),
		requestIDMiddleware(),
	)

	s := &Service{
		conf:   conf,
		engine: engine,
		router: router,
	}

	s.initRouter()
	return s
}

func (s *Service) initRouter() {
	s.router.POST("/v1/audio/transcriptions", s.handleTranscriptions)
	s.router.GET("/v1/models", s.handleModels)
	s.router.GET("/health", s.handleHealth)
}

// ListenAndServe blocks serving HTTP until the listener fails or Stop is called.
func (s *Service) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    s.conf.Addr(),
		Handler: s.router,
	}

	log.Info().Msg("Starting HTTP server on " + s.conf.Addr())
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shutdown HTTP server")
		return nil
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}

// GetRouter exposes the router for tests.
func (s *Service) GetRouter() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-Id", id)
		c.Set("request_id", id)
		c.Next()
	}
}
