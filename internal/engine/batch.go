package engine

import (
	"github.com/aqueductql/aqueduct/internal/future"
)

// pendingResolve is one selector waiting for a wave flush, paired with the
// memo cell its outcome completes.
type pendingResolve struct {
	sel  *Selector
	cell *future.Value[any]
}

// batchGroup accumulates the selectors of one resolver within the current
// wave. kind distinguishes field batches from node loads for events only;
// the invocation contract is identical.
type batchGroup struct {
	identity string
	kind     string
	meta     ResolverMetadata
	resolve  BatchResolveFunc
	items    []pendingResolve
}

// collector gathers pending resolutions while synchronous expansion makes
// progress. When the operation quiesces the scheduler drains it, issuing
// one ResolveBatch call per distinct resolver for everything that became
// ready in the wave. It is only touched from the scheduler goroutine.
type collector struct {
	order  []string
	groups map[string]*batchGroup
}

func newCollector() *collector {
	return &collector{groups: make(map[string]*batchGroup)}
}

func (c *collector) enqueue(kind string, meta ResolverMetadata, resolve BatchResolveFunc, sel *Selector, cell *future.Value[any]) {
	identity := meta.Identity()
	g, ok := c.groups[identity]
	if !ok {
		g = &batchGroup{identity: identity, kind: kind, meta: meta, resolve: resolve}
		c.groups[identity] = g
		c.order = append(c.order, identity)
	}
	g.items = append(g.items, pendingResolve{sel: sel, cell: cell})
}

func (c *collector) pending() bool {
	return len(c.order) > 0
}

// drain snapshots and clears the current wave, preserving the order in
// which resolvers first appeared.
func (c *collector) drain() []*batchGroup {
	if len(c.order) == 0 {
		return nil
	}
	out := make([]*batchGroup, 0, len(c.order))
	for _, identity := range c.order {
		out = append(out, c.groups[identity])
	}
	c.order = c.order[:0]
	c.groups = make(map[string]*batchGroup)
	return out
}
