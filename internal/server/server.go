package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/physiolab/soapnote/internal/config"
	"github.com/physiolab/soapnote/internal/logger"
)

// Server is the HTTP front for the pipeline, backed by Gin with h2c so
// HTTP/2 clients work without TLS.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     config.ServerConfig
	log        *logger.Logger
}

// New creates a Server with the standard middleware chain applied. Routes
// are registered by the caller via GinEngine.
func New(cfg config.ServerConfig, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(RequestID())
	engine.Use(Recovery(log))
	engine.Use(RequestLogger(log))
	if cfg.MaxUploadBytes > 0 {
		engine.Use(BodySizeLimit(cfg.MaxUploadBytes))
	}

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     h2c.NewHandler(engine, h2s),
		ReadTimeout: 10 * time.Minute,
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.Fields("error", err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", s.httpServer.Addr))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
