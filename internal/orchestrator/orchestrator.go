// Package orchestrator coordinates one request lifecycle: cache lookup,
// strategy resolution, admission control, coalesced synthesis, cache
// write-through and progress termination. Its invariant is that a caller
// always receives some valid graph shape, even under total backend
// failure.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/chainmap/internal/cache"
	"github.com/agenthands/chainmap/internal/coalesce"
	"github.com/agenthands/chainmap/internal/library"
	"github.com/agenthands/chainmap/internal/model"
	"github.com/agenthands/chainmap/internal/pipeline"
	"github.com/agenthands/chainmap/internal/progress"
	"github.com/agenthands/chainmap/internal/ratelimit"
	"github.com/agenthands/chainmap/internal/resolver"
)

// Source tags for the final artifact.
const (
	SourceCache    = "cache"
	SourcePrebuilt = "prebuilt"
	SourceAssemble = "assemble"
	SourceGenerate = "generate"
	SourceFallback = "fallback"
)

// ErrRateLimited reports that admission was denied before any collaborator
// call. Surfaced to the caller distinctly from generation failures.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrEmptyQuery reports a query that normalizes to nothing.
var ErrEmptyQuery = errors.New("query is empty after normalization")

type Orchestrator struct {
	cache      cache.Store
	resolver   *resolver.Resolver
	library    library.Loader
	limiter    ratelimit.Limiter
	pipeline   *pipeline.Pipeline
	group      *coalesce.Group
	log        *zap.Logger
	runTimeout time.Duration
}

func New(
	cacheStore cache.Store,
	res *resolver.Resolver,
	lib library.Loader,
	limiter ratelimit.Limiter,
	pipe *pipeline.Pipeline,
	logger *zap.Logger,
	runTimeout time.Duration,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &Orchestrator{
		cache:      cacheStore,
		resolver:   res,
		library:    lib,
		limiter:    limiter,
		pipeline:   pipe,
		group:      coalesce.New(),
		log:        logger,
		runTimeout: runTimeout,
	}
}

// Generate produces the graph for query, emitting progress to rep and
// terminating it with exactly one done or error event. The returned source
// is one of the Source constants. A non-nil error is returned only for
// rate limiting and degenerate input; synthesis failures degrade to a
// fallback graph instead.
func (o *Orchestrator) Generate(ctx context.Context, caller, query string, rep *progress.Reporter) (*model.Graph, string, error) {
	key := resolver.Normalize(query)
	if key == "" {
		rep.Error("query is empty", nil)
		return nil, "", ErrEmptyQuery
	}

	log := o.log.With(zap.String("key", key), zap.String("run_id", rep.RunID()))

	if entry, ok := o.cache.Get(ctx, key); ok {
		log.Info("cache hit", zap.String("origin", entry.Source))
		rep.Done(entry.Graph, SourceCache)
		return entry.Graph, SourceCache, nil
	}

	decision := o.resolver.Resolve(query)
	rep.Report(progress.StepResolve,
		fmt.Sprintf("strategy: %s", decision.Strategy), 5,
		map[string]any{"strategy": string(decision.Strategy)})

	var hints []string
	switch decision.Strategy {
	case resolver.StrategyPrebuilt:
		g, err := o.library.Load(decision.LibraryKey)
		if err == nil {
			o.cache.Set(ctx, key, g, SourcePrebuilt)
			rep.Done(g, SourcePrebuilt)
			return g, SourcePrebuilt, nil
		}
		// Library failure is an expected condition; fall through to
		// synthesis.
		if !errors.Is(err, library.ErrNotFound) {
			log.Warn("library load failed", zap.String("asset", decision.LibraryKey), zap.Error(err))
		}
		decision.Strategy = resolver.StrategyGenerate

	case resolver.StrategyAssemble:
		if g, err := o.library.Load(decision.LibraryKey); err == nil {
			hints = rootLabels(g)
		} else {
			decision.Strategy = resolver.StrategyGenerate
		}
	}

	// Everything past this point calls the collaborator; prebuilt hits
	// never get here and are exempt from the quota.
	allowed, err := o.limiter.Allow(ctx, caller)
	if err != nil {
		log.Warn("rate limiter check failed, admitting", zap.Error(err))
	} else if !allowed {
		rep.Error("rate limit exceeded, try again shortly", nil)
		return nil, "", ErrRateLimited
	}

	subject := decision.LibraryKey
	if decision.Strategy == resolver.StrategyGenerate {
		subject = query
	}

	g, shared, err := o.group.Do(key, func() (*model.Graph, error) {
		// The run is detached from the request context so a disconnected
		// caller still populates the cache for coalesced waiters; the
		// timeout bounds it instead.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.runTimeout)
		defer cancel()
		return o.pipeline.Run(runCtx, pipeline.Request{Subject: subject, Hints: hints}, rep)
	})
	if err != nil {
		log.Warn("synthesis failed, serving fallback graph", zap.Error(err))
		fb := FallbackGraph(subject)
		rep.Error("generation unavailable, serving minimal skeleton", fb)
		return fb, SourceFallback, nil
	}

	source := SourceGenerate
	if decision.Strategy == resolver.StrategyAssemble {
		source = SourceAssemble
	}
	if shared {
		log.Info("joined in-flight synthesis")
	}
	// Write-through happens for every caller; Set is idempotent, and
	// singleflight marks the initiator shared too once anyone joins.
	o.cache.Set(ctx, key, g, source)
	rep.Done(g, source)
	return g, source, nil
}

func rootLabels(g *model.Graph) []string {
	labels := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		labels = append(labels, n.Label)
	}
	return labels
}
