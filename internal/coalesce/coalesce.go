// Package coalesce merges concurrent synthesis requests for the same
// normalized query into one unit of work. Concurrent callers share the
// original initiator's eventual result; the registration is removed when
// the call settles, success or failure, so later calls retry fresh.
package coalesce

import (
	"golang.org/x/sync/singleflight"

	"github.com/agenthands/chainmap/internal/model"
)

type Group struct {
	sf singleflight.Group
}

func New() *Group {
	return &Group{}
}

// Do invokes fn at most once per key concurrently. The returned bool
// reports whether this caller shared a result produced by another caller's
// invocation.
func (g *Group) Do(key string, fn func() (*model.Graph, error)) (*model.Graph, bool, error) {
	v, err, shared := g.sf.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*model.Graph), shared, nil
}
