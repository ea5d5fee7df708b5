package model

import "strings"

// Category classifies a node's role in the value chain.
type Category string

const (
	CategoryExtraction    Category = "extraction"
	CategoryProcessing    Category = "processing"
	CategoryManufacturing Category = "manufacturing"
	CategoryDistribution  Category = "distribution"
	CategoryRetail        Category = "retail"
	CategoryService       Category = "service"
	CategorySupport       Category = "support"
	CategoryOther         Category = "other"
)

// Archetype is a coarse economic-model classification used to parameterize
// synthesis. Unknown values coerce to ArchetypeLinear.
type Archetype string

const (
	ArchetypeLinear      Archetype = "linear"
	ArchetypeHubAndSpoke Archetype = "hub_and_spoke"
	ArchetypeCircular    Archetype = "circular"
	ArchetypePlatform    Archetype = "platform"
)

var validCategories = map[Category]bool{
	CategoryExtraction:    true,
	CategoryProcessing:    true,
	CategoryManufacturing: true,
	CategoryDistribution:  true,
	CategoryRetail:        true,
	CategoryService:       true,
	CategorySupport:       true,
	CategoryOther:         true,
}

var validArchetypes = map[Archetype]bool{
	ArchetypeLinear:      true,
	ArchetypeHubAndSpoke: true,
	ArchetypeCircular:    true,
	ArchetypePlatform:    true,
}

// NormalizeCategory coerces collaborator output to a known category.
// Anything unrecognized becomes CategoryOther rather than an error, since
// the generating model is free to invent labels.
func NormalizeCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if validCategories[c] {
		return c
	}
	return CategoryOther
}

// NormalizeArchetype coerces collaborator output to a known archetype,
// defaulting to linear.
func NormalizeArchetype(raw string) Archetype {
	a := Archetype(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")))
	if validArchetypes[a] {
		return a
	}
	return ArchetypeLinear
}
