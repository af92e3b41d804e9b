// Package server implements the ThreatSleuth HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/config"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/detector"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/log"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/metrics"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/utils"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

const (
	serviceName    = "ThreatSleuth API"
	serviceVersion = "1.0.0"

	// multipartOverhead is allowed on top of the upload cap for the
	// multipart boundaries and part headers.
	multipartOverhead = 64 * 1024
)

// Error messages returned to clients.
const (
	msgNoFile       = "No file provided"
	msgNoFilename   = "No file selected"
	msgFileType     = "File type not allowed"
	msgTooLarge     = "File too large"
	msgUploadFailed = "Unable to read upload"
)

type Server struct {
	router   *gin.Engine
	cfg      *config.Config
	detector *detector.Detector
	metrics  *metrics.Collectors
	gatherer prometheus.Gatherer
}

type Option interface {
	set(*Server)
}

type option func(*Server)

func (o option) set(s *Server) { o(s) }

// Metrics records rejected uploads in m and exposes gatherer on /metrics.
func Metrics(gatherer prometheus.Gatherer, m *metrics.Collectors) Option {
	return option(func(s *Server) {
		s.gatherer = gatherer
		s.metrics = m
	})
}

// New builds the API.
func New(cfg *config.Config, d *detector.Detector, opts ...Option) *Server {
	router := gin.New()
	accessLog := log.NewWriter(context.Background(), slog.Default(), slog.LevelInfo)
	router.Use(gin.LoggerWithWriter(accessLog), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:   router,
		cfg:      cfg,
		detector: d,
	}
	for _, opt := range opts {
		opt.set(s)
	}

	router.GET("/", s.health)
	api := router.Group("/api")
	api.POST("/predict", s.predict)
	api.GET("/stats", s.stats)
	if s.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler returns the API as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) modelLoaded() bool {
	return s.detector.Mode() == verdict.ModeModel
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      serviceName,
		"version":      serviceVersion,
		"model_loaded": s.modelLoaded(),
	})
}

func (s *Server) stats(c *gin.Context) {
	status := "fallback_mode"
	if s.modelLoaded() {
		status = "loaded"
	}
	c.JSON(http.StatusOK, gin.H{
		"allowed_extensions": s.cfg.Upload.AllowedExtensions,
		"max_file_size_mb":   s.cfg.Upload.MaxSizeMB,
		"model_status":       status,
	})
}

type predictResponse struct {
	ScanID      string                `json:"scan_id"`
	Filename    string                `json:"filename"`
	Prediction  verdict.Label         `json:"prediction"`
	Confidence  float64               `json:"confidence"`
	Explanation string                `json:"explanation"`
	Features    verdict.FeatureVector `json:"features"`
	Mode        verdict.Mode          `json:"mode"`
	SHA256      string                `json:"sha256,omitempty"`
	Indicators  map[string]int        `json:"indicators,omitempty"`
}

func (s *Server) reject(c *gin.Context, status int, reason, msg string) {
	s.metrics.Rejected(reason)
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) predict(c *gin.Context) {
	limit := s.cfg.MaxUploadBytes() + multipartOverhead
	if c.Request.ContentLength > limit {
		s.reject(c, http.StatusRequestEntityTooLarge, metrics.ReasonSize, msgTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		s.reject(c, http.StatusRequestEntityTooLarge, metrics.ReasonSize, msgTooLarge)
		return
	case errors.Is(err, http.ErrMissingFile):
		// A part sent with an empty filename is parsed as a plain value.
		msg := msgNoFile
		if form := c.Request.MultipartForm; form != nil && len(form.Value["file"]) > 0 {
			msg = msgNoFilename
		}
		s.reject(c, http.StatusBadRequest, metrics.ReasonMissingFile, msg)
		return
	case err != nil:
		slog.WarnContext(c, "Unable to parse upload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgUploadFailed})
		return
	}
	name := utils.SafeFilename(fh.Filename)
	if name == "" || !s.cfg.ExtensionAllowed(utils.Extension(name)) {
		s.reject(c, http.StatusBadRequest, metrics.ReasonExtension, msgFileType)
		return
	}
	if fh.Size > s.cfg.MaxUploadBytes() {
		s.reject(c, http.StatusRequestEntityTooLarge, metrics.ReasonSize, msgTooLarge)
		return
	}

	dir, err := os.MkdirTemp("", "threatsleuth-upload-")
	if err != nil {
		slog.ErrorContext(c, "Unable to create upload directory", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		slog.ErrorContext(c, "Unable to save upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ScanTimeout)
	defer cancel()
	result := s.detector.Classify(ctx, dst)

	c.JSON(http.StatusOK, predictResponse{
		ScanID:      result.ScanID,
		Filename:    result.Filename,
		Prediction:  result.Label,
		Confidence:  result.Confidence,
		Explanation: result.ExplanationText(),
		Features:    result.Features,
		Mode:        result.Mode,
		SHA256:      result.SHA256,
		Indicators:  result.Indicators,
	})
}

// Run serves the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
