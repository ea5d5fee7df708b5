package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/chainmap/internal/llm"
	"github.com/agenthands/chainmap/internal/model"
	"github.com/agenthands/chainmap/internal/resolver"
)

// classification is the outcome of stage 1, used to parameterize every
// later prompt.
type classification struct {
	Archetype model.Archetype
	Subject   string
	Region    string
}

// classificationReply is the stage-1 wire shape.
type classificationReply struct {
	Archetype string `json:"archetype"`
	Subject   string `json:"subject"`
	Region    string `json:"region"`
}

// classify never hard-fails: any transport or parse problem falls back to
// the linear archetype and the raw subject.
func (r *run) classify(ctx context.Context, subject string) classification {
	fallback := classification{Archetype: model.ArchetypeLinear, Subject: subject}

	out, err := r.generate(ctx, fmt.Sprintf(r.prompts.Classify, subject))
	if err != nil {
		r.log.Warn("classify call failed, using defaults", zap.Error(err))
		return fallback
	}
	reply, err := llm.ParseJSON[classificationReply](out)
	if err != nil {
		r.log.Warn("classify reply unparseable, using defaults", zap.Error(err))
		return fallback
	}

	cls := classification{
		Archetype: model.NormalizeArchetype(reply.Archetype),
		Subject:   strings.TrimSpace(reply.Subject),
		Region:    strings.TrimSpace(reply.Region),
	}
	if cls.Subject == "" {
		cls.Subject = subject
	}
	return cls
}

// rootStage is a stage-2 root with its locally assigned ID.
type rootStage struct {
	ID              string
	Label           string
	Category        model.Category
	Description     string
	Objective       string
	RevenueModel    string
	Tools           []string
	Actors          []string
	PainPoints      []string
	CostDrivers     []string
	RegulatoryNotes string
}

type structureReply struct {
	Nodes []structureNode `json:"nodes"`
}

type structureNode struct {
	Label           string   `json:"label"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	Objective       string   `json:"objective"`
	RevenueModel    string   `json:"revenue_model"`
	Tools           []string `json:"tools"`
	Actors          []string `json:"actors"`
	PainPoints      []string `json:"pain_points"`
	CostDrivers     []string `json:"cost_drivers"`
	RegulatoryNotes string   `json:"regulatory_notes"`
}

// structure produces the enriched root stages. An empty or unparseable
// reply is valid: the run proceeds with zero roots and yields a thinner
// graph rather than aborting.
func (r *run) structure(ctx context.Context, cls classification, hints []string) []rootStage {
	hintBlock := ""
	if len(hints) > 0 {
		hintBlock = fmt.Sprintf("Stages from a closely related chain, reuse where they fit:\n- %s\n",
			strings.Join(hints, "\n- "))
	}

	out, err := r.generate(ctx, fmt.Sprintf(r.prompts.Structure, cls.Subject, cls.Archetype, hintBlock))
	if err != nil {
		r.log.Warn("structure call failed, proceeding with zero stages", zap.Error(err))
		return nil
	}
	reply, err := llm.ParseJSON[structureReply](out)
	if err != nil {
		r.log.Warn("structure reply unparseable, proceeding with zero stages", zap.Error(err))
		return nil
	}

	nodes := reply.Nodes
	if len(nodes) > maxRoots {
		nodes = nodes[:maxRoots]
	}

	var roots []rootStage
	used := make(map[string]bool)
	for _, n := range nodes {
		label := strings.TrimSpace(n.Label)
		if label == "" {
			continue
		}
		roots = append(roots, rootStage{
			ID:              assignID(label, used),
			Label:           label,
			Category:        model.NormalizeCategory(n.Category),
			Description:     n.Description,
			Objective:       n.Objective,
			RevenueModel:    n.RevenueModel,
			Tools:           n.Tools,
			Actors:          n.Actors,
			PainPoints:      n.PainPoints,
			CostDrivers:     n.CostDrivers,
			RegulatoryNotes: n.RegulatoryNotes,
		})
	}
	return roots
}

type expandReply struct {
	Children []expandNode `json:"children"`
}

type expandNode struct {
	Label       string       `json:"label"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Children    []expandNode `json:"children"`
}

// expandOne produces the subtree for a single root stage, capped at the
// configured depth.
func (r *run) expandOne(ctx context.Context, cls classification, root rootStage) ([]model.Node, error) {
	out, err := r.generate(ctx, fmt.Sprintf(r.prompts.Expand,
		cls.Subject, root.Label, root.Category, r.cfg.MaxDepth))
	if err != nil {
		return nil, err
	}
	reply, err := llm.ParseJSON[expandReply](out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	used := make(map[string]bool)
	return convertChildren(reply.Children, root.ID, r.cfg.MaxDepth, used), nil
}

// convertChildren turns the wire subtree into model nodes, assigning IDs
// scoped under the root and truncating past the depth cap.
func convertChildren(children []expandNode, parentID string, depthLeft int, used map[string]bool) []model.Node {
	if depthLeft <= 0 {
		return nil
	}
	var nodes []model.Node
	for _, c := range children {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			continue
		}
		id := assignID(parentID+" "+label, used)
		nodes = append(nodes, model.Node{
			ID:          id,
			Label:       label,
			Category:    model.NormalizeCategory(c.Category),
			Description: c.Description,
			Children:    convertChildren(c.Children, id, depthLeft-1, used),
		})
	}
	return nodes
}

type crosslinkReply struct {
	Edges []model.Edge `json:"edges"`
}

// crosslink asks for edges between root stages only. The reply is not
// trusted: unknown IDs, self-loops and duplicates are filtered by the
// assembler.
func (r *run) crosslink(ctx context.Context, cls classification, roots []rootStage) []model.Edge {
	if len(roots) < 2 {
		return nil
	}

	var list strings.Builder
	for _, root := range roots {
		fmt.Fprintf(&list, "- %s: %s\n", root.ID, root.Label)
	}

	out, err := r.generate(ctx, fmt.Sprintf(r.prompts.Crosslink, cls.Subject, list.String()))
	if err != nil {
		r.log.Warn("crosslink call failed, proceeding without edges", zap.Error(err))
		return nil
	}
	reply, err := llm.ParseJSON[crosslinkReply](out)
	if err != nil {
		r.log.Warn("crosslink reply unparseable, proceeding without edges", zap.Error(err))
		return nil
	}
	return reply.Edges
}

// assignID derives a slug ID from label, disambiguating collisions with a
// numeric suffix.
func assignID(label string, used map[string]bool) string {
	base := strings.ReplaceAll(resolver.Normalize(label), " ", "-")
	if base == "" {
		base = "node"
	}
	id := base
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	used[id] = true
	return id
}
