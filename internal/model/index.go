package model

// Index is a flat view of a graph: every node keyed by ID, with parent and
// child relationships as ID lists. Lookups and membership checks stay O(1)
// instead of requiring tree walks.
type Index struct {
	Nodes    map[string]*Node
	Parent   map[string]string   // child id -> parent id; roots absent
	Children map[string][]string // parent id -> child ids, in order
	Roots    []string
	// Duplicates holds ids that appeared more than once during the walk,
	// in encounter order. The index keeps the first occurrence.
	Duplicates []string
}

// BuildIndex walks the graph once and returns its flat index.
func BuildIndex(g *Graph) *Index {
	idx := &Index{
		Nodes:    make(map[string]*Node),
		Parent:   make(map[string]string),
		Children: make(map[string][]string),
	}

	var visit func(n *Node, parent string)
	visit = func(n *Node, parent string) {
		if _, seen := idx.Nodes[n.ID]; seen {
			idx.Duplicates = append(idx.Duplicates, n.ID)
		} else {
			idx.Nodes[n.ID] = n
			if parent != "" {
				idx.Parent[n.ID] = parent
				idx.Children[parent] = append(idx.Children[parent], n.ID)
			}
		}
		for i := range n.Children {
			visit(&n.Children[i], n.ID)
		}
	}
	for i := range g.Nodes {
		root := &g.Nodes[i]
		idx.Roots = append(idx.Roots, root.ID)
		visit(root, "")
	}
	return idx
}

// Has reports whether id names a node in the graph.
func (idx *Index) Has(id string) bool {
	_, ok := idx.Nodes[id]
	return ok
}
