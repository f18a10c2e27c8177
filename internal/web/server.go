// Package web exposes the note, card and review operations as JSON
// endpoints.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/conorfennell/knolcards/internal/domain"
	"github.com/conorfennell/knolcards/internal/generate"
	"github.com/conorfennell/knolcards/internal/ingest"
	"github.com/conorfennell/knolcards/internal/review"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Notes is the ingestion surface.
type Notes interface {
	DecodeBatch(payload string) ([]ingest.Item, error)
	SubmitBatch(ctx context.Context, items []ingest.Item) ([]ingest.NoteRef, error)
	CheckBatch(ctx context.Context, items []ingest.Item) ([]ingest.CheckResult, error)
}

// Generator creates cards from notes.
type Generator interface {
	Generate(ctx context.Context, noteIDs []string) (*generate.Result, error)
}

// Reviews is the review surface.
type Reviews interface {
	ListDue(ctx context.Context, now time.Time) ([]domain.DueQuestion, error)
	RecordScore(ctx context.Context, req review.ScoreRequest) error
	Overview(ctx context.Context) ([]domain.ReviewOverview, error)
	History(ctx context.Context, cardID string) ([]domain.Score, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the server.
type Options struct {
	AllowOrigins []string
	// Now is the clock used for due selection; defaults to time.Now.
	Now func() time.Time
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	router    *gin.Engine
	notes     Notes
	generator Generator
	reviews   Reviews
	health    Pinger
	logger    *slog.Logger
	now       func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(notes Notes, generator Generator, reviews Reviews, health Pinger, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		router:    gin.New(),
		notes:     notes,
		generator: generator,
		reviews:   reviews,
		health:    health,
		logger:    logger,
		now:       opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.router.Use(gin.Recovery(), requestLogger(logger))
	if len(opts.AllowOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth())

	api := s.router.Group("/api")
	{
		api.POST("/notes/check", s.handleCheckNotes())
		api.POST("/notes/upload", s.handleUploadNotes())

		api.POST("/cards/generate", s.handleGenerateCards())
		api.GET("/cards/:id/scores", s.handleCardScores())

		api.GET("/reviews", s.handleOverview())
		api.GET("/reviews/due", s.handleDueReviews())
		api.POST("/reviews/score", s.handleRecordScore())
	}
}

// requestLogger logs every request once it has been served.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []any{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Debug("HTTP request", fields...)
		}
	}
}
