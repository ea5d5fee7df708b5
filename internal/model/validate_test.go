package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainGraph() *Graph {
	return &Graph{
		Subject:   "Test Chain",
		Archetype: ArchetypeLinear,
		Nodes: []Node{
			{
				ID:       "farming",
				Label:    "Farming",
				Category: CategoryExtraction,
				Children: []Node{
					{ID: "farming-planting", Label: "Planting", Category: CategoryExtraction},
					{ID: "farming-harvest", Label: "Harvest", Category: CategoryExtraction},
				},
			},
			{ID: "milling", Label: "Milling", Category: CategoryProcessing},
			{ID: "retail", Label: "Retail", Category: CategoryRetail},
		},
		Edges: []Edge{
			{Source: "farming", Target: "milling"},
			{Source: "milling", Target: "retail"},
		},
	}
}

func TestValidateAcceptsWellFormedGraph(t *testing.T) {
	g := chainGraph()
	assert.Empty(t, g.Validate())
}

func TestValidateFlagsViolations(t *testing.T) {
	g := chainGraph()
	g.Nodes[1].Children = []Node{
		{ID: "farming", Label: "Shadow", Category: CategoryOther}, // duplicate across subtrees
	}
	g.Edges = append(g.Edges,
		Edge{Source: "retail", Target: "retail"},     // self-loop
		Edge{Source: "farming", Target: "milling"},   // duplicate
		Edge{Source: "nowhere", Target: "milling"},   // unknown source
	)
	g.Nodes[2].Category = "boutique"

	errs := g.Validate()
	assert.Len(t, errs, 5)
}

func TestRepairRemovesExactlyInjectedBadEdges(t *testing.T) {
	g := chainGraph()
	good := append([]Edge(nil), g.Edges...)
	g.Edges = append(g.Edges,
		Edge{Source: "farming", Target: "farming"},
		Edge{Source: "ghost", Target: "milling"},
		Edge{Source: "milling", Target: "ghost"},
		Edge{Source: "farming", Target: "milling"},
	)

	rep := Repair(g)
	assert.Equal(t, 4, rep.DroppedEdges)
	assert.Equal(t, good, g.Edges)
	assert.Empty(t, g.Validate())
}

func TestRepairCoercesCategoriesAndIDs(t *testing.T) {
	g := chainGraph()
	g.Nodes[1].Category = "artisanal"
	g.Nodes[2].ID = "" // blank id
	g.Nodes[0].Children[1].ID = "farming" // duplicate of its own root
	g.Archetype = "weird-shape"

	rep := Repair(g)
	assert.Equal(t, 1, rep.CoercedCategories)
	assert.Equal(t, 2, rep.ReassignedIDs)
	assert.Equal(t, CategoryOther, g.Nodes[1].Category)
	assert.Equal(t, ArchetypeLinear, g.Archetype)
	assert.NotEmpty(t, g.Nodes[2].ID)
	assert.Empty(t, g.Validate())
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryProcessing, NormalizeCategory(" Processing "))
	assert.Equal(t, CategoryOther, NormalizeCategory("made up"))
	assert.Equal(t, CategoryOther, NormalizeCategory(""))
}

func TestNormalizeArchetype(t *testing.T) {
	assert.Equal(t, ArchetypeHubAndSpoke, NormalizeArchetype("Hub-And-Spoke"))
	assert.Equal(t, ArchetypeLinear, NormalizeArchetype("spiral"))
}

func TestBuildIndex(t *testing.T) {
	g := chainGraph()
	idx := BuildIndex(g)

	require.True(t, idx.Has("farming-planting"))
	assert.Equal(t, "farming", idx.Parent["farming-planting"])
	assert.Equal(t, []string{"farming-planting", "farming-harvest"}, idx.Children["farming"])
	assert.Equal(t, []string{"farming", "milling", "retail"}, idx.Roots)
	assert.Empty(t, idx.Duplicates)
	assert.False(t, idx.Has("ghost"))
}

func TestWalkVisitsEveryNodeOnce(t *testing.T) {
	g := chainGraph()
	seen := map[string]int{}
	g.Walk(func(n *Node) { seen[n.ID]++ })

	assert.Len(t, seen, 5)
	for id, count := range seen {
		assert.Equal(t, 1, count, "node %s", id)
	}
	assert.Equal(t, 5, g.NodeCount())
}
