package model

// Node is one stage or activity in a value chain. Children form the
// drill-down hierarchy; IDs are unique across the whole graph, not just
// among siblings, because edges reference them from a flat namespace.
type Node struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Category        Category `json:"category"`
	Description     string   `json:"description,omitempty"`
	Objective       string   `json:"objective,omitempty"`
	RevenueModel    string   `json:"revenue_model,omitempty"`
	Tools           []string `json:"tools,omitempty"`
	Actors          []string `json:"actors,omitempty"`
	PainPoints      []string `json:"pain_points,omitempty"`
	CostDrivers     []string `json:"cost_drivers,omitempty"`
	RegulatoryNotes string   `json:"regulatory_notes,omitempty"`
	Children        []Node   `json:"children,omitempty"`
}

// Edge links two root nodes by ID.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the synthesized value-chain artifact. It is immutable once
// cached; consumers that enrich it work on their own copy.
type Graph struct {
	Subject   string    `json:"subject"`
	Archetype Archetype `json:"archetype,omitempty"`
	Region    string    `json:"region,omitempty"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
}

// Walk visits every node in the graph depth-first, parents before children.
func (g *Graph) Walk(fn func(n *Node)) {
	var visit func(n *Node)
	visit = func(n *Node) {
		fn(n)
		for i := range n.Children {
			visit(&n.Children[i])
		}
	}
	for i := range g.Nodes {
		visit(&g.Nodes[i])
	}
}

// NodeCount returns the total number of nodes across all levels.
func (g *Graph) NodeCount() int {
	count := 0
	g.Walk(func(*Node) { count++ })
	return count
}
