package engine

import (
	"context"
	"testing"

	"github.com/aqueductql/aqueduct/internal/checks"
	"github.com/aqueductql/aqueduct/internal/schema"
	"github.com/aqueductql/aqueduct/internal/selections"
	"github.com/stretchr/testify/require"
)

// testDispatcher is a hand-filled dispatch table keyed "Type.field".
type testDispatcher struct {
	fieldExecs  map[string]FieldResolverExecutor
	nodeExecs   map[string]NodeResolverExecutor
	fieldChecks map[string]checks.Executor
	typeChecks  map[string]checks.Executor
}

func newTestDispatcher() *testDispatcher {
	return &testDispatcher{
		fieldExecs:  make(map[string]FieldResolverExecutor),
		nodeExecs:   make(map[string]NodeResolverExecutor),
		fieldChecks: make(map[string]checks.Executor),
		typeChecks:  make(map[string]checks.Executor),
	}
}

func (d *testDispatcher) FieldResolver(typeName, fieldName string) FieldResolverExecutor {
	return d.fieldExecs[typeName+"."+fieldName]
}

func (d *testDispatcher) NodeResolver(typeName string) NodeResolverExecutor {
	return d.nodeExecs[typeName]
}

func (d *testDispatcher) FieldChecker(typeName, fieldName string) checks.Executor {
	return d.fieldChecks[typeName+"."+fieldName]
}

func (d *testDispatcher) TypeChecker(typeName string) checks.Executor {
	return d.typeChecks[typeName]
}

func (d *testDispatcher) field(typeName, fieldName string, fn ResolveFunc) {
	meta := ResolverMetadata{TypeName: typeName, FieldName: fieldName}
	d.fieldExecs[typeName+"."+fieldName] = NewFieldResolver(meta, nil, nil, fn)
}

func (d *testDispatcher) fieldWith(typeName, fieldName string, objSel, querySel *selections.RequiredSelectionSet, fn ResolveFunc) {
	meta := ResolverMetadata{TypeName: typeName, FieldName: fieldName}
	d.fieldExecs[typeName+"."+fieldName] = NewFieldResolver(meta, objSel, querySel, fn)
}

func (d *testDispatcher) batchField(typeName, fieldName string, objSel *selections.RequiredSelectionSet, fn BatchResolveFunc) {
	meta := ResolverMetadata{TypeName: typeName, FieldName: fieldName}
	d.fieldExecs[typeName+"."+fieldName] = NewBatchFieldResolver(meta, objSel, nil, fn)
}

func (d *testDispatcher) node(typeName string, fn ResolveFunc) {
	d.nodeExecs[typeName] = NewNodeResolver(ResolverMetadata{TypeName: typeName}, fn)
}

func (d *testDispatcher) batchNode(typeName string, fn BatchResolveFunc) {
	d.nodeExecs[typeName] = NewBatchNodeResolver(ResolverMetadata{TypeName: typeName}, fn)
}

// testChecker adapts a plain function to checks.Executor.
type testChecker struct {
	meta checks.Metadata
	rss  *selections.RequiredSelectionSet
	fn   func(context.Context, *checks.View) checks.Result
}

func (c *testChecker) Metadata() checks.Metadata { return c.meta }

func (c *testChecker) RequiredSelections() *selections.RequiredSelectionSet { return c.rss }

func (c *testChecker) Execute(ctx context.Context, view *checks.View) checks.Result {
	return c.fn(ctx, view)
}

func mustSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	return s
}

func mustSelections(t *testing.T, s *schema.Schema, onType, source string, opts selections.Options) *selections.RequiredSelectionSet {
	t.Helper()
	rss, err := selections.Parse(s, onType, source, opts)
	require.NoError(t, err)
	return rss
}

func run(t *testing.T, s *schema.Schema, d Dispatcher, query string, vars map[string]any) *Response {
	t.Helper()
	eng := New(s, d, Options{})
	return eng.ExecuteQuery(context.Background(), query, "", vars)
}

const testSDL = `
type Query {
	viewer: User @resolver
	user(id: ID!): User @resolver
	node(id: ID!): Node @resolver
	a: Foo @resolver
	b: Foo @resolver
}
interface Node {
	id: ID!
}
type User implements Node {
	id: ID!
	name: String
	email: String
	ssn: String
	posts(limit: Int = 2): [Post!] @resolver
}
type Post implements Node {
	id: ID!
	title: String
}
type Foo implements Node {
	id: ID!
	x: Int
	score: Int @resolver
}
`
