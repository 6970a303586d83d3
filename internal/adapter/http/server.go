// Package http serves the agro-analytics API together with the health,
// readiness, and metrics endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	"github.com/couchcryptid/agro-analytics-service/internal/report"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReportService is the engine behind the API.
type ReportService interface {
	GenerateReport(ctx context.Context, params domain.AgroReportParams) (domain.AgroReportResult, error)
	Chat(ctx context.Context, question string, prior domain.AgroReportResult) string
	RangeRecords(ctx context.Context, start, end time.Time) ([]domain.NormalizedRecord, error)
	CheckReadiness(ctx context.Context) error
	Location() *time.Location
}

// Server exposes the report API plus /healthz, /readyz, and /metrics.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	service    ReportService
	logger     *slog.Logger
}

// NewServer wires routes and middleware. Browser requests are allowed from
// corsOrigin only.
func NewServer(addr, corsOrigin string, service ReportService, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(corsMiddleware(corsOrigin))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine:  engine,
		service: service,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	s.engine.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(s.service)))
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	agro := s.engine.Group("/agro-analytics")
	agro.GET("/report", s.handleReport)
	agro.POST("/chat", s.handleChat)

	s.engine.GET("/weather/range", s.handleRange)
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) handleReport(c *gin.Context) {
	params, err := s.reportParams(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.service.GenerateReport(c.Request.Context(), params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

type chatRequest struct {
	Question      string                   `json:"question"`
	ReportContext *domain.AgroReportResult `json:"reportContext"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" || req.ReportContext == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "question and reportContext are required"})
		return
	}

	answer := s.service.Chat(c.Request.Context(), req.Question, *req.ReportContext)
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (s *Server) handleRange(c *gin.Context) {
	loc := s.service.Location()
	start, err := domain.ParseDate(c.Query("startDate"), loc)
	if err != nil {
		s.writeError(c, err)
		return
	}
	end, err := domain.ParseDate(c.Query("endDate"), loc)
	if err != nil {
		s.writeError(c, err)
		return
	}

	records, err := s.service.RangeRecords(c.Request.Context(), start, end)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if records == nil {
		records = []domain.NormalizedRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// reportParams reads the report query. Absent thresholds take the crop
// defaults; the maximum must exceed the base.
func (s *Server) reportParams(c *gin.Context) (domain.AgroReportParams, error) {
	loc := s.service.Location()

	startRaw, endRaw := c.Query("startDate"), c.Query("endDate")
	if strings.TrimSpace(startRaw) == "" || strings.TrimSpace(endRaw) == "" {
		return domain.AgroReportParams{}, domain.ErrMissingParameters
	}
	start, err := domain.ParseDate(startRaw, loc)
	if err != nil {
		return domain.AgroReportParams{}, err
	}
	end, err := domain.ParseDate(endRaw, loc)
	if err != nil {
		return domain.AgroReportParams{}, err
	}

	base, err := threshold(c, "cropBaseTemp", domain.DefaultCropBaseTempC)
	if err != nil {
		return domain.AgroReportParams{}, err
	}
	maxTemp, err := threshold(c, "cropMaxTemp", domain.DefaultCropMaxTempC)
	if err != nil {
		return domain.AgroReportParams{}, err
	}
	if maxTemp <= base {
		return domain.AgroReportParams{}, fmt.Errorf("%w: cropMaxTemp %g must be greater than cropBaseTemp %g",
			domain.ErrInvalidParameters, maxTemp, base)
	}

	return domain.AgroReportParams{
		StartDate:     start,
		EndDate:       end,
		CropBaseTempC: base,
		CropMaxTempC:  maxTemp,
	}, nil
}

func threshold(c *gin.Context, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidParameters, name)
	}
	return v, nil
}

// writeError maps engine errors onto status codes and the failure envelope.
func (s *Server) writeError(c *gin.Context, err error) {
	var emptyRange *domain.EmptyRangeError
	status := http.StatusInternalServerError
	message := "failed to generate report"

	switch {
	case errors.Is(err, domain.ErrMissingParameters), errors.Is(err, domain.ErrInvalidParameters):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &emptyRange):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, report.ErrFetchTelemetry):
		status, message = http.StatusBadGateway, "telemetry store unavailable"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
