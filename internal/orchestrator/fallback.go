package orchestrator

import "github.com/agenthands/chainmap/internal/model"

// FallbackGraph is the minimal static skeleton served when synthesis is
// wholly unavailable: four generic chain stages linked linearly. Structure
// over content — the caller always gets a renderable artifact.
func FallbackGraph(subject string) *model.Graph {
	return &model.Graph{
		Subject:   subject,
		Archetype: model.ArchetypeLinear,
		Nodes: []model.Node{
			{
				ID:          "inputs",
				Label:       "Inputs & Raw Materials",
				Category:    model.CategoryExtraction,
				Description: "Upstream sourcing of the chain's raw inputs.",
			},
			{
				ID:          "production",
				Label:       "Production & Processing",
				Category:    model.CategoryProcessing,
				Description: "Transformation of inputs into sellable goods or services.",
			},
			{
				ID:          "distribution",
				Label:       "Distribution & Logistics",
				Category:    model.CategoryDistribution,
				Description: "Movement of finished output toward markets.",
			},
			{
				ID:          "market",
				Label:       "Sales & End Markets",
				Category:    model.CategoryRetail,
				Description: "Channels where output reaches end customers.",
			},
		},
		Edges: []model.Edge{
			{Source: "inputs", Target: "production"},
			{Source: "production", Target: "distribution"},
			{Source: "distribution", Target: "market"},
		},
	}
}
