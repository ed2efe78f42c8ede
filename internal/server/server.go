// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/extract"
	"docqa/internal/metrics"
	"docqa/internal/service"
)

// Pipeline is the part of service.Service the HTTP adapter needs.
type Pipeline interface {
	IngestDocument(ctx context.Context, doc domain.Document) (service.IngestReport, error)
	AnswerContext(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
	BuildPrompt(result domain.RetrievalResult, query string) string
	Ask(ctx context.Context, query string, k int) (service.Answer, error)
}

// Config configures the HTTP adapter.
type Config struct {
	TopK        int
	MaxUploadMB int
}

type Server struct {
	e    *echo.Echo
	svc  Pipeline
	topK int
	log  *zap.Logger
}

func New(svc Pipeline, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TopK < 1 {
		cfg.TopK = 4
	}
	if cfg.MaxUploadMB < 1 {
		cfg.MaxUploadMB = 20
	}
	s := &Server{e: echo.New(), svc: svc, topK: cfg.TopK, log: log}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadMB)))
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.e.GET("/", s.index)
	s.e.GET("/health", s.health)
	s.e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	s.e.POST("/upload", s.upload)
	s.e.POST("/ask", s.ask)
	s.e.POST("/context", s.retrieveContext)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errc <- s.e.Start(addr)
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	return s.e.Shutdown(shutdownCtx)
}

type askRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type source struct {
	Sequence int     `json:"sequence"`
	Section  int     `json:"section"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

func (s *Server) index(c echo.Context) error {
	return c.String(http.StatusOK, "Server is running. Try /upload or /ask.")
}

func (s *Server) health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) upload(c echo.Context) error {
	var (
		name string
		data []byte
	)
	ct, _, _ := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if ct == echo.MIMEMultipartForm {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "No file provided", "code": domain.Code(domain.ErrInvalidArgument)})
		}
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read upload", "code": domain.Code(domain.ErrInvalidArgument)})
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read upload", "code": domain.Code(domain.ErrInvalidArgument)})
		}
		name = fh.Filename
	} else {
		var err error
		if data, err = io.ReadAll(c.Request().Body); err != nil {
			return s.fail(c, err)
		}
		name = c.QueryParam("name")
		if name == "" {
			name = "body.txt"
		}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty upload", "code": domain.Code(domain.ErrInvalidArgument)})
	}

	doc, err := extract.Extract(name, data)
	if err != nil {
		return s.fail(c, err)
	}
	rep, err := s.svc.IngestDocument(c.Request().Context(), doc)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Document processed successfully",
		"document_id": rep.DocumentID,
		"source":      rep.Source,
		"generation":  rep.Generation,
		"chunks":      rep.Chunks,
		"summary":     rep.Summary,
		"superseded":  rep.Superseded,
	})
}

func (s *Server) ask(c echo.Context) error {
	req, err := s.bindAsk(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json", "code": domain.Code(domain.ErrInvalidArgument)})
	}
	ans, err := s.svc.Ask(c.Request().Context(), req.Query, req.K)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"answer":     ans.Text,
		"generation": ans.Result.Generation,
		"sources":    sources(ans.Result),
	})
}

func (s *Server) retrieveContext(c echo.Context) error {
	req, err := s.bindAsk(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json", "code": domain.Code(domain.ErrInvalidArgument)})
	}
	res, err := s.svc.AnswerContext(c.Request().Context(), req.Query, req.K)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"generation": res.Generation,
		"prompt":     s.svc.BuildPrompt(res, req.Query),
		"sources":    sources(res),
	})
}

func (s *Server) bindAsk(c echo.Context) (askRequest, error) {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return req, err
	}
	if req.K == 0 {
		req.K = s.topK
	}
	return req, nil
}

func sources(res domain.RetrievalResult) []source {
	out := make([]source, len(res.Results))
	for i, r := range res.Results {
		out[i] = source{Sequence: r.Chunk.Sequence, Section: r.Chunk.Section, Score: r.Score, Text: r.Chunk.Text}
	}
	return out
}

func (s *Server) fail(c echo.Context, err error) error {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Int("status", status), zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": err.Error(), "code": domain.Code(err)})
}

// StatusFor maps pipeline errors to HTTP status codes.
func StatusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrEmptyIndex):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrIndexNotBuilt):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGenerationFailed), errors.Is(err, domain.ErrEmptyAnswer):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
