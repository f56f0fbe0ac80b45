package engine

import (
	"sync"

	"github.com/aqueductql/aqueduct/internal/future"
	"github.com/aqueductql/aqueduct/internal/globalid"
)

// ObjectResult is the per-object memoization table of one operation. Each
// resolver-backed field resolved on the object occupies one cell keyed by
// field name plus canonical argument signature; the first request installs
// the cell, every later request shares it. Projection fields read from the
// object's source data and are not memoized, they are already cheap.
//
// Objects reached through a global ID share one ObjectResult per identity
// for the whole operation, so distinct query paths to the same node
// converge on the same cells.
type ObjectResult struct {
	typeName string
	id       globalid.ID
	node     bool

	// source is the object's own field data: the map a resolver or node
	// loader produced for it. Projections read from it.
	source *future.Value[map[string]any]

	mu      sync.Mutex
	entries map[string]*future.Value[any]
}

func newObjectResult(typeName string, source *future.Value[map[string]any]) *ObjectResult {
	return &ObjectResult{
		typeName: typeName,
		source:   source,
		entries:  make(map[string]*future.Value[any]),
	}
}

func newNodeResult(id globalid.ID, source *future.Value[map[string]any]) *ObjectResult {
	r := newObjectResult(id.Type, source)
	r.id = id
	r.node = true
	return r
}

// TypeName returns the concrete object type this result holds.
func (r *ObjectResult) TypeName() string { return r.typeName }

// NodeID returns the object's global ID and whether it has one.
func (r *ObjectResult) NodeID() (globalid.ID, bool) { return r.id, r.node }

// Source returns the object's raw field data.
func (r *ObjectResult) Source() *future.Value[map[string]any] { return r.source }

// GetOrCreate returns the cell for (fieldName, argKey), installing a
// pending one when absent. created reports whether this call installed
// it; exactly one caller per key observes true and owns scheduling the
// resolution that completes the cell.
func (r *ObjectResult) GetOrCreate(fieldName, argKey string) (cell *future.Value[any], created bool) {
	key := fieldName
	if argKey != "" {
		key += "(" + argKey + ")"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cell, ok := r.entries[key]; ok {
		return cell, false
	}
	cell = future.Pending[any]()
	r.entries[key] = cell
	return cell, true
}

// project reads a field from the object's source data.
func (r *ObjectResult) project(fieldName string) *future.Value[any] {
	return future.Map(r.source, func(src map[string]any) (any, error) {
		if src == nil {
			return nil, nil
		}
		return src[fieldName], nil
	})
}
