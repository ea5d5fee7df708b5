// Package library loads prebuilt value-chain graphs from disk. A missing
// asset is an expected condition: the orchestrator silently falls through
// to synthesis.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/chainmap/internal/model"
	"github.com/agenthands/chainmap/internal/resolver"
)

// ErrNotFound reports that no asset exists for a key.
var ErrNotFound = errors.New("library asset not found")

// Loader resolves a library key to a prebuilt graph.
type Loader interface {
	Load(key string) (*model.Graph, error)
}

// Dir serves assets from a directory of JSON files, one graph per file,
// named by the slug of the subject.
type Dir struct {
	dir string
	log *zap.Logger
}

func NewDir(dir string, logger *zap.Logger) *Dir {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dir{dir: dir, log: logger}
}

// Slug converts a subject into its asset file stem: the normalized form
// with spaces replaced by hyphens.
func Slug(key string) string {
	return strings.ReplaceAll(resolver.Normalize(key), " ", "-")
}

func (d *Dir) Load(key string) (*model.Graph, error) {
	slug := Slug(key)
	if slug == "" {
		return nil, ErrNotFound
	}

	path := filepath.Join(d.dir, slug+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read library asset '%s': %w", path, err)
	}

	var g model.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse library asset '%s': %w", path, err)
	}

	// Assets are curated but not trusted blindly; repair enforces the same
	// invariants synthesis output gets.
	if rep := model.Repair(&g); rep.Changed() {
		d.log.Warn("library asset needed repair",
			zap.String("asset", slug),
			zap.Int("dropped_edges", rep.DroppedEdges),
			zap.Int("coerced_categories", rep.CoercedCategories))
	}
	return &g, nil
}
