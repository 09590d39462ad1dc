package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vidnest/accounts/internal/config"
	"vidnest/accounts/internal/handlers"
	"vidnest/accounts/internal/metrics"
	"vidnest/accounts/internal/middleware"
)

type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	log    zerolog.Logger
	cfg    *config.AppConfig
}

func NewHTTPServer(cfg *config.AppConfig, log zerolog.Logger, m *metrics.Metrics, handlerSet handlers.HandlerSet) *HTTPServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := NewEngine(cfg, log, m, handlerSet)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &HTTPServer{
		engine: engine,
		server: srv,
		log:    log,
		cfg:    cfg,
	}
}

// NewEngine builds the router with the full middleware chain. Split out of
// NewHTTPServer so tests can drive it through httptest.
func NewEngine(cfg *config.AppConfig, log zerolog.Logger, m *metrics.Metrics, handlerSet handlers.HandlerSet) *gin.Engine {
	engine := gin.New()
	engine.RedirectTrailingSlash = true
	engine.RedirectFixedPath = true
	if cfg.Storage.MaxUploadBytes > 0 {
		// Two image parts plus form fields.
		engine.MaxMultipartMemory = 2*cfg.Storage.MaxUploadBytes + 1<<20
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.AllowCORSOrigins),
		middleware.Metrics(m),
	)

	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}
	handlerSet.Register(engine.Group("/api"))

	return engine
}

func (s *HTTPServer) Start() error {
	s.log.Info().
		Str("addr", s.server.Addr).
		Msg("http server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}
