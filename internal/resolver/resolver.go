// Package resolver maps a free-text query to a resolution strategy by
// approximate matching against a static alias table. "Close enough to serve
// verbatim" and "close enough to use as scaffolding" are separate
// thresholds because they carry different risk: serving wrong data outright
// versus blending it with fresh synthesis.
package resolver

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// Strategy names how a query's graph will be produced.
type Strategy string

const (
	StrategyPrebuilt Strategy = "prebuilt"
	StrategyAssemble Strategy = "assemble"
	StrategyGenerate Strategy = "generate"
)

// Decision is the outcome of resolving one query. LibraryKey is set only
// for prebuilt and assemble.
type Decision struct {
	Strategy   Strategy
	LibraryKey string
}

type aliasEntry struct {
	alias   string // normalized
	subject string
}

type Resolver struct {
	aliases []aliasEntry
	strict  float64
	loose   float64
	params  *levenshtein.Params
}

// New builds a resolver over an alias->subject table with the two
// similarity thresholds. Aliases are normalized once at construction and
// kept sorted so that score ties break the same way on every call.
func New(aliases map[string]string, strict, loose float64) *Resolver {
	entries := make([]aliasEntry, 0, len(aliases))
	for alias, subject := range aliases {
		if key := Normalize(alias); key != "" {
			entries = append(entries, aliasEntry{alias: key, subject: subject})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].alias < entries[j].alias })
	return &Resolver{
		aliases: entries,
		strict:  strict,
		loose:   loose,
		params:  levenshtein.NewParams(),
	}
}

// Normalize produces the canonical form of a query: lowercased, trimmed,
// runs of non-alphanumerics collapsed to single spaces. This is also the
// cache and dedup key; distinct raw strings may normalize to the same key.
func Normalize(query string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Resolve is pure and deterministic: the same query against the same alias
// table always yields the same decision. It is recomputed per request,
// never persisted.
func (r *Resolver) Resolve(query string) Decision {
	normalized := Normalize(query)
	if normalized == "" {
		return Decision{Strategy: StrategyGenerate}
	}

	bestScore := 0.0
	bestSubject := ""
	for _, e := range r.aliases {
		score := levenshtein.Similarity(normalized, e.alias, r.params)
		if score > bestScore {
			bestScore = score
			bestSubject = e.subject
		}
	}

	switch {
	case bestScore >= r.strict:
		return Decision{Strategy: StrategyPrebuilt, LibraryKey: bestSubject}
	case bestScore >= r.loose:
		return Decision{Strategy: StrategyAssemble, LibraryKey: bestSubject}
	default:
		return Decision{Strategy: StrategyGenerate}
	}
}
