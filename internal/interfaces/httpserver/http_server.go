package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"docchat-server/internal/config"
	"docchat-server/internal/infrastructure/storage"
	"docchat-server/internal/interfaces/httpserver/middlewares"
	"docchat-server/internal/interfaces/httpserver/routes"
)

// HttpServer wraps the gin engine with graceful shutdown helpers. Prometheus
// metrics are served on a separate listener so the scrape endpoint never sits
// behind auth.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
	store  storage.Storage
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg *config.Config, log zerolog.Logger, apiRoutes *routes.Routes, store storage.Storage) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.TracingMiddleware(cfg.ServiceName),
		middlewares.LoggingMiddleware(log),
		middlewares.MetricsMiddleware(),
		middlewares.CORSMiddleware(),
	)

	server := &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
		store:  store,
	}

	server.registerCoreRoutes()
	apiRoutes.Register(engine.Group("/"))
	return server
}

// Run starts the API and metrics listeners and handles graceful shutdown via
// context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	apiServer := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.engine,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    s.cfg.MetricsAddr(),
		Handler: metricsMux,
	}

	errCh := make(chan error, 2)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("HTTP server listening")
		errCh <- ignoreServerClosed(apiServer.ListenAndServe())
	}()
	go func() {
		s.log.Info().Str("addr", s.cfg.MetricsAddr()).Msg("metrics server listening")
		errCh <- ignoreServerClosed(metricsServer.ListenAndServe())
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = err
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	return shutdownErr
}

func (s *HttpServer) registerCoreRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": s.cfg.ServiceName, "status": "ok"})
	})
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.engine.GET("/readyz", func(c *gin.Context) {
		if s.store != nil {
			if err := s.store.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "storage unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

func ignoreServerClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
