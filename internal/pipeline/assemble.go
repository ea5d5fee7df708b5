package pipeline

import (
	"go.uber.org/zap"

	"github.com/agenthands/chainmap/internal/model"
)

// assemble merges root metadata, expansion subtrees and cross-links into
// one graph, then validates and repairs it. Subtrees are matched to roots
// by index into the stage-2 list, never by completion order.
func (r *run) assemble(cls classification, roots []rootStage, subtrees [][]model.Node, edges []model.Edge) *model.Graph {
	g := &model.Graph{
		Subject:   cls.Subject,
		Archetype: cls.Archetype,
		Region:    cls.Region,
		Nodes:     make([]model.Node, 0, len(roots)),
		Edges:     []model.Edge{},
	}

	for i, root := range roots {
		node := model.Node{
			ID:              root.ID,
			Label:           root.Label,
			Category:        root.Category,
			Description:     root.Description,
			Objective:       root.Objective,
			RevenueModel:    root.RevenueModel,
			Tools:           root.Tools,
			Actors:          root.Actors,
			PainPoints:      root.PainPoints,
			CostDrivers:     root.CostDrivers,
			RegulatoryNotes: root.RegulatoryNotes,
		}
		if i < len(subtrees) {
			node.Children = subtrees[i]
		}
		g.Nodes = append(g.Nodes, node)
	}

	// Edges only join roots; filter against the root set before the
	// whole-graph repair so a subtree ID can never satisfy an endpoint.
	rootIdx := &model.Index{Nodes: make(map[string]*model.Node, len(g.Nodes))}
	for i := range g.Nodes {
		rootIdx.Nodes[g.Nodes[i].ID] = &g.Nodes[i]
	}
	g.Edges = model.FilterEdges(edges, rootIdx, nil)

	if rep := model.Repair(g); rep.Changed() {
		r.log.Info("assembled graph repaired",
			zap.String("subject", cls.Subject),
			zap.Int("dropped_edges", rep.DroppedEdges),
			zap.Int("coerced_categories", rep.CoercedCategories),
			zap.Int("reassigned_ids", rep.ReassignedIDs))
	}
	if errs := g.Validate(); len(errs) > 0 {
		// Repair guarantees validity; anything left is a bug worth seeing.
		r.log.Error("assembled graph still invalid after repair",
			zap.String("subject", cls.Subject), zap.Errors("violations", errs))
	}
	return g
}
