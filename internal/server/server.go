package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/chainmap/internal/model"
	"github.com/agenthands/chainmap/internal/orchestrator"
	"github.com/agenthands/chainmap/internal/progress"
	"github.com/agenthands/chainmap/internal/resolver"
)

// maxQueryLen bounds query size at the boundary, before any work happens.
const maxQueryLen = 200

// Generator is the orchestration entry point the HTTP layer drives.
type Generator interface {
	Generate(ctx context.Context, caller, query string, rep *progress.Reporter) (*model.Graph, string, error)
}

type Server struct {
	orch Generator
	log  *zap.Logger
}

func New(orch Generator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{orch: orch, log: logger}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/api/graphs", s.GenerateGraph)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

type GenerateRequest struct {
	Query  string `json:"query"`
	Stream bool   `json:"stream"`
}

type GenerateResponse struct {
	Graph  *model.Graph `json:"graph"`
	Source string       `json:"source"`
}

// validateQuery rejects degenerate input: empty after normalization,
// over-long, or containing non-printable runes.
func validateQuery(query string) string {
	if len(query) > maxQueryLen {
		return "query exceeds maximum length"
	}
	for _, r := range query {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return "query contains non-printable characters"
		}
	}
	if resolver.Normalize(query) == "" {
		return "query is empty"
	}
	return ""
}

func (s *Server) GenerateGraph(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if msg := validateQuery(req.Query); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if req.Stream {
		s.streamGraph(c, req.Query)
		return
	}

	rep := progress.NewReporter(nil, s.log)
	g, source, err := s.orch.Generate(c.Request.Context(), c.ClientIP(), req.Query, rep)
	switch {
	case errors.Is(err, orchestrator.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	case err != nil:
		s.log.Error("generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate graph"})
	default:
		c.JSON(http.StatusOK, GenerateResponse{Graph: g, Source: source})
	}
}

// streamGraph runs the orchestration in its own goroutine and relays
// progress events over SSE. If the client goes away the sink reports
// closure and the reporter drops further events; the run itself continues
// so its result still lands in the cache.
func (s *Server) streamGraph(c *gin.Context, query string) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := make(chan progress.Event, 16)
	// Captured before the goroutine starts: gin contexts are pooled and
	// must not be touched after the handler returns.
	ctx := c.Request.Context()
	caller := c.ClientIP()
	clientGone := ctx.Done()

	sink := func(ev progress.Event) error {
		select {
		case events <- ev:
			return nil
		case <-clientGone:
			return errors.New("client disconnected")
		}
	}

	rep := progress.NewReporter(sink, s.log)
	go func() {
		defer close(events)
		if _, _, err := s.orch.Generate(ctx, caller, query, rep); err != nil &&
			!errors.Is(err, orchestrator.ErrRateLimited) {
			s.log.Error("streamed generation failed", zap.Error(err))
		}
	}()

	for ev := range events {
		c.SSEvent(ev.Step, ev)
		c.Writer.Flush()
	}
}
