// Package pipeline drives the multi-stage synthesis protocol against the
// generation collaborator: classify, structure, parallel detail expansion,
// cross-link, then local assembly with validation and repair. Every stage
// may degrade to fewer or empty results without failing the run; only a
// total collaborator outage, with no output from any call, surfaces as an
// error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/chainmap/internal/config"
	"github.com/agenthands/chainmap/internal/llm"
	"github.com/agenthands/chainmap/internal/model"
	"github.com/agenthands/chainmap/internal/progress"
)

// maxRoots caps how many top-level stages a structure reply may contribute;
// anything past it is truncated rather than rejected.
const maxRoots = 16

type Pipeline struct {
	client  llm.Client
	cfg     config.PipelineConfig
	prompts config.Prompts
	log     *zap.Logger
}

func New(client llm.Client, cfg config.PipelineConfig, prompts config.Prompts, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	return &Pipeline{client: client, cfg: cfg, prompts: prompts, log: logger}
}

// Request describes one synthesis run. Hints carries root labels from a
// partially matching library graph when the strategy is assemble; the
// structure stage uses them as scaffolding.
type Request struct {
	Subject string
	Hints   []string
}

// run tracks per-run collaborator outcomes so the outage decision can be
// made at the end: replies counts calls that returned any text (parseable
// or not), failures counts transport-level errors.
type run struct {
	*Pipeline
	replies  atomic.Int64
	failures atomic.Int64
}

func (r *run) generate(ctx context.Context, prompt string) (string, error) {
	out, err := r.client.Generate(ctx, prompt)
	if err != nil {
		r.failures.Add(1)
		return "", err
	}
	r.replies.Add(1)
	return out, nil
}

// Run executes the full pipeline for one subject. The returned graph is
// always structurally valid; rep receives stage-boundary progress and may
// be nil.
func (p *Pipeline) Run(ctx context.Context, req Request, rep *progress.Reporter) (*model.Graph, error) {
	r := &run{Pipeline: p}

	rep.Report(progress.StepClassify, "classifying subject", 10, nil)
	cls := r.classify(ctx, req.Subject)

	rep.Report(progress.StepStructure, "structuring value chain", 25, nil)
	roots := r.structure(ctx, cls, req.Hints)
	rep.Report(progress.StepStructure, fmt.Sprintf("identified %d stages", len(roots)), 35,
		map[string]any{"stages": len(roots)})

	subtrees := r.expand(ctx, cls, roots, rep)

	rep.Report(progress.StepCrosslink, "linking stages", 85, nil)
	edges := r.crosslink(ctx, cls, roots)

	rep.Report(progress.StepAssemble, "assembling graph", 95, nil)
	g := r.assemble(cls, roots, subtrees, edges)

	if r.replies.Load() == 0 && r.failures.Load() > 0 {
		return nil, fmt.Errorf("%w: %d calls failed with no output", llm.ErrUnavailable, r.failures.Load())
	}
	return g, nil
}

// expand runs stage 3: one independent collaborator call per root, bounded
// by the configured concurrency. A failed expansion yields an empty subtree
// for that root; it never cancels the siblings. Results are keyed by index
// into roots, not by completion order.
func (r *run) expand(ctx context.Context, cls classification, roots []rootStage, rep *progress.Reporter) [][]model.Node {
	subtrees := make([][]model.Node, len(roots))
	if len(roots) == 0 {
		return subtrees
	}

	var completed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i := range roots {
		i := i
		g.Go(func() error {
			children, err := r.expandOne(ctx, cls, roots[i])
			if err != nil {
				r.log.Warn("stage expansion failed, using empty subtree",
					zap.String("stage", roots[i].Label), zap.Error(err))
			} else {
				subtrees[i] = children
			}
			done := completed.Add(1)
			pct := 35 + int(45*done/int64(len(roots)))
			rep.Report(progress.StepExpand,
				fmt.Sprintf("expanded %d/%d stages", done, len(roots)), pct, nil)
			return nil
		})
	}
	// Workers only ever return nil; Wait is just the join point.
	_ = g.Wait()
	return subtrees
}

var errMalformed = errors.New("malformed collaborator output")
