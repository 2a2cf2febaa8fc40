// Package server exposes the HTTP trigger surface for the materializer.
// The external job runner calls POST /api/materialize once per delivery
// cycle; the process itself runs no scheduling loop.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/appsnprojectsstpl-tech/sakambari/internal/config"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/materializer"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/observability/logger"
)

// Module wires the HTTP server into the fx graph.
var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

// Server holds the handlers' dependencies.
type Server struct {
	engine *gin.Engine
	log    *zap.Logger
	cfg    config.Config
	driver *materializer.Driver
}

// NewEngine builds the gin engine for the configured environment.
func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger())
	return engine
}

// RequestLogger logs each request with the active trace context attached.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.FromContext(c.Request.Context()).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// NewServer constructs the Server.
func NewServer(engine *gin.Engine, log *zap.Logger, cfg config.Config, driver *materializer.Driver) *Server {
	return &Server{
		engine: engine,
		log:    log.Named("server"),
		cfg:    cfg,
		driver: driver,
	}
}

// RegisterRoutes attaches all routes to the engine.
func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.POST("/api/materialize", s.Materialize)
}

// Health reports process liveness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type materializeRequest struct {
	// Date is the target delivery date (YYYY-MM-DD); empty means today in
	// the operating timezone.
	Date string `json:"date"`
}

// Materialize runs one materialization pass and returns its summary. Safe
// to call repeatedly for the same date; duplicate firings only produce
// skipped_duplicate counts.
func (s *Server) Materialize(c *gin.Context) {
	// An empty body is a valid "materialize today" request.
	var req materializeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	var targetDate time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
			return
		}
		targetDate = parsed
	}

	summary, err := s.driver.Run(c.Request.Context(), targetDate)
	if err != nil {
		s.log.Error("materialization run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "materialization_failed",
			"summary": summary,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// RunHTTP starts the HTTP listener under fx lifecycle control.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server terminated", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
