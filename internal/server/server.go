// Package server is the web shell around the reconciliation service: an
// upload form, an HTML results page and a small JSON API.
//
// Routes:
//
//	GET  /               upload form (fields "statement" and "settlement")
//	POST /process        reconcile the uploaded pair and render the results table
//	POST /api/reconcile  reconcile the uploaded pair and return the report
//	GET  /api/health     liveness probe
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"settlement-reconciliation-service/internal/reconciler"
	"settlement-reconciliation-service/internal/reporter"
	"settlement-reconciliation-service/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Config holds the settings of the web shell.
type Config struct {
	// UploadDir receives the uploaded files for the duration of a request.
	UploadDir string `json:"upload_dir"`

	// KeepUploads leaves uploaded files on disk after processing.
	KeepUploads bool `json:"keep_uploads"`

	// MaxUploadBytes caps the multipart body; zero keeps gin's default.
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// AllowOrigins enables CORS for the API when not empty.
	AllowOrigins []string `json:"allow_origins,omitempty"`

	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig returns a default server configuration
func DefaultConfig() *Config {
	return &Config{
		UploadDir:       "uploads",
		MaxUploadBytes:  32 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.UploadDir == "" {
		return fmt.Errorf("upload directory is required")
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("max upload bytes cannot be negative: %d", c.MaxUploadBytes)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout cannot be negative: %s", c.ShutdownTimeout)
	}
	return nil
}

// Server serves the upload form and the reconciliation endpoints.
type Server struct {
	config  *Config
	service *reconciler.ReconciliationService
	engine  *gin.Engine
	logger  logger.Logger
}

// New builds a Server backed by service.
func New(config *Config, service *reconciler.ReconciliationService) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if service == nil {
		return nil, fmt.Errorf("reconciliation service is required")
	}
	if err := os.MkdirAll(config.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		config:  config,
		service: service,
		logger:  logger.WithComponent("server"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	if len(config.AllowOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins: config.AllowOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	if config.MaxUploadBytes > 0 {
		engine.MaxMultipartMemory = config.MaxUploadBytes
	}
	engine.SetHTMLTemplate(tmpl)

	s.engine = engine
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.index)
	s.engine.POST("/process", s.process)

	api := s.engine.Group("/api")
	api.GET("/health", s.health)
	api.POST("/reconcile", s.reconcile)
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Web server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Request handled")
	}
}

// reportGenerator builds a generator for format with the summary included.
func reportGenerator(format reporter.OutputFormat) (*reporter.ReportGenerator, error) {
	config := reporter.DefaultReportConfig()
	config.Format = format
	return reporter.NewReportGenerator(config)
}
