package model

import (
	"fmt"

	"github.com/google/uuid"
)

// RepairReport summarizes what Repair changed.
type RepairReport struct {
	DroppedEdges      int
	CoercedCategories int
	ReassignedIDs     int
}

func (r RepairReport) Changed() bool {
	return r.DroppedEdges > 0 || r.CoercedCategories > 0 || r.ReassignedIDs > 0
}

// Validate checks the graph's structural invariants: graph-wide ID
// uniqueness, edge endpoints that exist, no self-loops, no duplicate
// edges, and recognized category/archetype values. It reports every
// violation found rather than stopping at the first.
func (g *Graph) Validate() []error {
	var errs []error

	idx := BuildIndex(g)
	for _, id := range idx.Duplicates {
		errs = append(errs, fmt.Errorf("duplicate node id %q", id))
	}
	g.Walk(func(n *Node) {
		if n.ID == "" {
			errs = append(errs, fmt.Errorf("node %q has empty id", n.Label))
		}
		if !validCategories[n.Category] {
			errs = append(errs, fmt.Errorf("node %q has unknown category %q", n.ID, n.Category))
		}
	})

	seen := make(map[Edge]bool)
	for _, e := range g.Edges {
		switch {
		case e.Source == e.Target:
			errs = append(errs, fmt.Errorf("self-loop on %q", e.Source))
		case !idx.Has(e.Source):
			errs = append(errs, fmt.Errorf("edge source %q not in graph", e.Source))
		case !idx.Has(e.Target):
			errs = append(errs, fmt.Errorf("edge target %q not in graph", e.Target))
		case seen[e]:
			errs = append(errs, fmt.Errorf("duplicate edge %s -> %s", e.Source, e.Target))
		}
		seen[e] = true
	}

	if g.Archetype != "" && !validArchetypes[g.Archetype] {
		errs = append(errs, fmt.Errorf("unknown archetype %q", g.Archetype))
	}
	return errs
}

// Repair mutates the graph into a valid one: empty and duplicate node IDs
// get fresh unique IDs, unknown categories coerce to "other", the archetype
// coerces to a known value, and offending edges are stripped. Collaborator
// output is unreliable by nature, so repair always succeeds.
func Repair(g *Graph) RepairReport {
	var rep RepairReport

	seen := make(map[string]bool)
	g.Walk(func(n *Node) {
		if n.ID == "" || seen[n.ID] {
			n.ID = uuid.NewString()
			rep.ReassignedIDs++
		}
		seen[n.ID] = true
		if !validCategories[n.Category] {
			n.Category = NormalizeCategory(string(n.Category))
			rep.CoercedCategories++
		}
	})

	if g.Archetype != "" && !validArchetypes[g.Archetype] {
		g.Archetype = NormalizeArchetype(string(g.Archetype))
	}

	idx := BuildIndex(g)
	g.Edges = FilterEdges(g.Edges, idx, &rep)
	return rep
}

// FilterEdges drops self-loops, edges whose endpoints are missing from the
// index, and duplicate ordered pairs, preserving first-occurrence order.
func FilterEdges(edges []Edge, idx *Index, rep *RepairReport) []Edge {
	kept := edges[:0:0]
	seen := make(map[Edge]bool)
	for _, e := range edges {
		if e.Source == e.Target || !idx.Has(e.Source) || !idx.Has(e.Target) || seen[e] {
			if rep != nil {
				rep.DroppedEdges++
			}
			continue
		}
		seen[e] = true
		kept = append(kept, e)
	}
	return kept
}
