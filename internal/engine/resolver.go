package engine

import (
	"context"

	"github.com/aqueductql/aqueduct/internal/checks"
	"github.com/aqueductql/aqueduct/internal/selections"
)

// ResolverMetadata identifies a resolver executor: its registered name and
// the schema coordinate it serves. FieldName is empty for node resolvers.
type ResolverMetadata struct {
	Name      string
	TypeName  string
	FieldName string
}

// Coordinate renders the served schema coordinate ("User.posts" or "User").
func (m ResolverMetadata) Coordinate() string {
	if m.FieldName == "" {
		return m.TypeName
	}
	return m.TypeName + "." + m.FieldName
}

// Identity is the stable string used for batching and attribution. Two
// executors with the same identity are the same resolver.
func (m ResolverMetadata) Identity() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Coordinate()
}

// BatchItem is one selector's outcome within a batch result.
type BatchItem struct {
	Value any
	Err   error
}

// FieldResolverExecutor resolves a field for a batch of selectors.
//
// The result map is keyed by the selectors the executor received. Every
// selector must appear in the map unless the call as a whole returns an
// error; an omitted selector is reported as a contract violation against
// that selector alone. Keys that were not part of the batch are ignored.
type FieldResolverExecutor interface {
	Metadata() ResolverMetadata

	// ObjectSelections declares data needed from the parent object, or
	// nil.
	ObjectSelections() *selections.RequiredSelectionSet

	// QuerySelections declares data needed from the query root, or nil.
	QuerySelections() *selections.RequiredSelectionSet

	ResolveBatch(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error)
}

// NodeResolverExecutor loads node source data for a batch of global IDs.
// Each item's value is the node's field data as map[string]any, or nil
// when the node does not exist.
type NodeResolverExecutor interface {
	Metadata() ResolverMetadata
	ResolveBatch(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error)
}

// Dispatcher is the engine's read-only view of registered executors. A nil
// return means nothing is registered at that coordinate.
type Dispatcher interface {
	FieldResolver(typeName, fieldName string) FieldResolverExecutor
	NodeResolver(typeName string) NodeResolverExecutor
	FieldChecker(typeName, fieldName string) checks.Executor
	TypeChecker(typeName string) checks.Executor
}

// ResolveFunc resolves a single selector. Used by the unbatched adapters.
type ResolveFunc func(ctx context.Context, sel *Selector) (any, error)

// BatchResolveFunc resolves a whole batch at once.
type BatchResolveFunc func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error)

type fieldResolver struct {
	meta     ResolverMetadata
	objSel   *selections.RequiredSelectionSet
	querySel *selections.RequiredSelectionSet
	batch    BatchResolveFunc
}

// NewFieldResolver adapts a single-selector function to the batch
// contract. An unbatched resolver is a batch evaluated item by item; a
// per-item error fails only that selector.
func NewFieldResolver(meta ResolverMetadata, objSel, querySel *selections.RequiredSelectionSet, fn ResolveFunc) FieldResolverExecutor {
	return &fieldResolver{meta: meta, objSel: objSel, querySel: querySel, batch: perItem(fn)}
}

// NewBatchFieldResolver wraps a natively batched resolve function.
func NewBatchFieldResolver(meta ResolverMetadata, objSel, querySel *selections.RequiredSelectionSet, fn BatchResolveFunc) FieldResolverExecutor {
	return &fieldResolver{meta: meta, objSel: objSel, querySel: querySel, batch: fn}
}

func (r *fieldResolver) Metadata() ResolverMetadata { return r.meta }

func (r *fieldResolver) ObjectSelections() *selections.RequiredSelectionSet { return r.objSel }

func (r *fieldResolver) QuerySelections() *selections.RequiredSelectionSet { return r.querySel }

func (r *fieldResolver) ResolveBatch(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
	return r.batch(ctx, selectors)
}

type nodeResolver struct {
	meta  ResolverMetadata
	batch BatchResolveFunc
}

// NewNodeResolver adapts a single-ID loader to the batch contract.
func NewNodeResolver(meta ResolverMetadata, fn ResolveFunc) NodeResolverExecutor {
	return &nodeResolver{meta: meta, batch: perItem(fn)}
}

// NewBatchNodeResolver wraps a natively batched node loader.
func NewBatchNodeResolver(meta ResolverMetadata, fn BatchResolveFunc) NodeResolverExecutor {
	return &nodeResolver{meta: meta, batch: fn}
}

func (r *nodeResolver) Metadata() ResolverMetadata { return r.meta }

func (r *nodeResolver) ResolveBatch(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
	return r.batch(ctx, selectors)
}

func perItem(fn ResolveFunc) BatchResolveFunc {
	return func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		out := make(map[*Selector]BatchItem, len(selectors))
		for _, sel := range selectors {
			v, err := fn(ctx, sel)
			out[sel] = BatchItem{Value: v, Err: err}
		}
		return out, nil
	}
}
