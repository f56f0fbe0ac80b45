package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/aqueductql/aqueduct/internal/globalid"
	"github.com/aqueductql/aqueduct/internal/selections"
)

// batchLog records the size of every batch call a resolver receives.
// Resolver goroutines run concurrently, so access is guarded.
type batchLog struct {
	mu    sync.Mutex
	sizes []int
}

func (l *batchLog) record(n int) {
	l.mu.Lock()
	l.sizes = append(l.sizes, n)
	l.mu.Unlock()
}

func (l *batchLog) calls() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.sizes...)
}

func TestSiblingFieldsResolveInOneBatch(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	d.field("Query", "a", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "f1", "x": 1}, nil
	})
	d.field("Query", "b", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "f2", "x": 2}, nil
	})

	var log batchLog
	rssX := mustSelections(t, s, "Foo", "x", selections.Options{})
	d.batchField("Foo", "score", rssX, func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		log.record(len(selectors))
		out := make(map[*Selector]BatchItem, len(selectors))
		for _, sel := range selectors {
			x := sel.ObjectData["x"].(int)
			out[sel] = BatchItem{Value: x * 10}
		}
		return out, nil
	})

	resp := run(t, s, d, `{ a { score } b { score } }`, nil)
	require.Empty(t, resp.Errors)

	want := map[string]any{
		"a": map[string]any{"score": 10},
		"b": map[string]any{"score": 20},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}
	// Both Foo.score requests became ready in the same wave and went out
	// as a single call.
	require.Equal(t, []int{2}, log.calls())
}

func TestFieldMemoizationByArguments(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	d.field("Query", "viewer", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "u1"}, nil
	})

	var calls int32
	d.field("User", "posts", func(ctx context.Context, sel *Selector) (any, error) {
		atomic.AddInt32(&calls, 1)
		limit := sel.Arguments["limit"].(int)
		all := []any{
			map[string]any{"title": "one"},
			map[string]any{"title": "two"},
		}
		return all[:limit], nil
	})

	resp := run(t, s, d, `{
		viewer {
			p1: posts(limit: 1) { title }
			p2: posts(limit: 1) { title }
			p3: posts(limit: 2) { title }
		}
	}`, nil)
	require.Empty(t, resp.Errors)

	want := map[string]any{
		"viewer": map[string]any{
			"p1": []any{map[string]any{"title": "one"}},
			"p2": []any{map[string]any{"title": "one"}},
			"p3": []any{map[string]any{"title": "one"}, map[string]any{"title": "two"}},
		},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}
	// p1 and p2 share one cell; p3 differs only in arguments and gets its
	// own resolution.
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSharedNodeIdentityLoadsOnce(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	sharedID := globalid.ID{Type: "Foo", Internal: "7"}
	d.field("Query", "a", func(ctx context.Context, sel *Selector) (any, error) {
		return sharedID, nil
	})
	d.field("Query", "b", func(ctx context.Context, sel *Selector) (any, error) {
		return sharedID, nil
	})

	var nodeLog, scoreLog batchLog
	d.batchNode("Foo", func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		nodeLog.record(len(selectors))
		out := make(map[*Selector]BatchItem, len(selectors))
		for _, sel := range selectors {
			out[sel] = BatchItem{Value: map[string]any{"id": sel.NodeID, "x": 5}}
		}
		return out, nil
	})
	rssX := mustSelections(t, s, "Foo", "x", selections.Options{})
	d.batchField("Foo", "score", rssX, func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		scoreLog.record(len(selectors))
		out := make(map[*Selector]BatchItem, len(selectors))
		for _, sel := range selectors {
			out[sel] = BatchItem{Value: sel.ObjectData["x"].(int) * 10}
		}
		return out, nil
	})

	resp := run(t, s, d, `{ a { x score } b { x score } }`, nil)
	require.Empty(t, resp.Errors)

	want := map[string]any{
		"a": map[string]any{"x": 5, "score": 50},
		"b": map[string]any{"x": 5, "score": 50},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}
	// Both paths converge on the same identity: one node load, one score
	// resolution.
	require.Equal(t, []int{1}, nodeLog.calls())
	require.Equal(t, []int{1}, scoreLog.calls())
}

func TestBatchResultOmittingSelectorFailsOnlyThatField(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	d.field("Query", "a", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "f1", "x": 1}, nil
	})
	d.field("Query", "b", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "f2", "x": 2}, nil
	})

	rssX := mustSelections(t, s, "Foo", "x", selections.Options{})
	d.batchField("Foo", "score", rssX, func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		out := make(map[*Selector]BatchItem)
		for _, sel := range selectors {
			if sel.ObjectData["x"].(int) == 2 {
				continue // drop b's selector on the floor
			}
			out[sel] = BatchItem{Value: 10}
		}
		return out, nil
	})

	resp := run(t, s, d, `{ a { score } b { score } }`, nil)

	want := map[string]any{
		"a": map[string]any{"score": 10},
		"b": map[string]any{"score": nil},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, resp.Errors, 1)
	require.Contains(t, resp.Errors[0].Message, "batch result omitted selector Foo.score")
	require.Equal(t, codeUsage, resp.Errors[0].Extensions["code"])
	if diff := cmp.Diff(Path{"b", "score"}, resp.Errors[0].Path); diff != "" {
		t.Fatalf("error path mismatch (-want +got):\n%s", diff)
	}
}

func TestNodeBatchOmittingSelectorFailsOnlyThatPath(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	d.field("Query", "a", func(ctx context.Context, sel *Selector) (any, error) {
		return globalid.ID{Type: "Foo", Internal: "1"}, nil
	})
	d.field("Query", "b", func(ctx context.Context, sel *Selector) (any, error) {
		return globalid.ID{Type: "Foo", Internal: "2"}, nil
	})
	d.field("Query", "node", func(ctx context.Context, sel *Selector) (any, error) {
		return globalid.ID{Type: "Foo", Internal: "3"}, nil
	})

	var log batchLog
	d.batchNode("Foo", func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		log.record(len(selectors))
		out := make(map[*Selector]BatchItem)
		for _, sel := range selectors {
			if sel.NodeID.Internal == "2" {
				continue // lose b's id
			}
			out[sel] = BatchItem{Value: map[string]any{"id": sel.NodeID, "x": 9}}
		}
		return out, nil
	})

	resp := run(t, s, d, `{ a { x } b { x } node(id: "n3") { id } }`, nil)

	encoded, err := globalid.NewBase64Codec().Encode(globalid.ID{Type: "Foo", Internal: "3"})
	require.NoError(t, err)
	want := map[string]any{
		"a":    map[string]any{"x": 9},
		"b":    nil,
		"node": map[string]any{"id": encoded},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}

	// All three ids go out in one load; the lost one fails only its own
	// response position.
	require.Equal(t, []int{3}, log.calls())
	require.Len(t, resp.Errors, 1)
	require.Contains(t, resp.Errors[0].Message, "omitted selector")
	require.Equal(t, codeUsage, resp.Errors[0].Extensions["code"])
	if diff := cmp.Diff(Path{"b"}, resp.Errors[0].Path); diff != "" {
		t.Fatalf("error path mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchCallErrorFailsEverySelector(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	d.field("Query", "a", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "f1", "x": 1}, nil
	})
	d.field("Query", "b", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "f2", "x": 2}, nil
	})
	d.batchField("Foo", "score", nil, func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		return nil, errors.New("db down")
	})

	resp := run(t, s, d, `{ a { score } b { score } }`, nil)

	want := map[string]any{
		"a": map[string]any{"score": nil},
		"b": map[string]any{"score": nil},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, resp.Errors, 2)
	for _, gqlErr := range resp.Errors {
		require.Contains(t, gqlErr.Message, "db down")
		require.Equal(t, codeResolver, gqlErr.Extensions["code"])
	}
}

func TestResolverPanicBecomesResolverError(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	d.field("Query", "viewer", func(ctx context.Context, sel *Selector) (any, error) {
		panic("boom")
	})

	resp := run(t, s, d, `{ viewer { name } }`, nil)

	want := map[string]any{"viewer": nil}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, resp.Errors, 1)
	require.Contains(t, resp.Errors[0].Message, "panic: boom")
	require.Equal(t, codeResolver, resp.Errors[0].Extensions["code"])
}

func TestPerItemErrorFailsOnlyThatSelector(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	d.field("Query", "a", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "f1", "x": 1}, nil
	})
	d.field("Query", "b", func(ctx context.Context, sel *Selector) (any, error) {
		return map[string]any{"id": "f2", "x": 2}, nil
	})
	rssX := mustSelections(t, s, "Foo", "x", selections.Options{})
	d.batchField("Foo", "score", rssX, func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		out := make(map[*Selector]BatchItem)
		for _, sel := range selectors {
			if sel.ObjectData["x"].(int) == 2 {
				out[sel] = BatchItem{Err: errors.New("no score for f2")}
			} else {
				out[sel] = BatchItem{Value: 10}
			}
		}
		return out, nil
	})

	resp := run(t, s, d, `{ a { score } b { score } }`, nil)

	want := map[string]any{
		"a": map[string]any{"score": 10},
		"b": map[string]any{"score": nil},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, resp.Errors, 1)
	require.Contains(t, resp.Errors[0].Message, "no score for f2")
	if diff := cmp.Diff(Path{"b", "score"}, resp.Errors[0].Path); diff != "" {
		t.Fatalf("error path mismatch (-want +got):\n%s", diff)
	}
}

func TestCancellationAbandonsOperation(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	started := make(chan struct{})
	d.field("Query", "viewer", func(ctx context.Context, sel *Selector) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	eng := New(s, d, Options{})
	resp := eng.ExecuteQuery(ctx, `{ viewer { name } }`, "", nil)

	require.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	require.Contains(t, resp.Errors[0].Message, "operation canceled")
}

func TestReentrantSelectionSharesMemoization(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()

	var viewerCalls int32
	d.field("Query", "viewer", func(ctx context.Context, sel *Selector) (any, error) {
		atomic.AddInt32(&viewerCalls, 1)
		return map[string]any{"id": "u1", "name": "Ada"}, nil
	})
	d.field("Query", "a", func(ctx context.Context, sel *Selector) (any, error) {
		data, err := sel.ExecuteSelectionSet(`{ viewer { name } }`).Get(ctx)
		if err != nil {
			return nil, err
		}
		viewer := data["viewer"].(map[string]any)
		return map[string]any{"id": "f1", "x": len(viewer["name"].(string))}, nil
	})

	// Without viewer in the main query the re-entrant execution drives its
	// own wave.
	resp := run(t, s, d, `{ a { x } }`, nil)
	require.Empty(t, resp.Errors)
	want := map[string]any{"a": map[string]any{"x": 3}}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&viewerCalls))

	// With viewer also in the main query the re-entry reuses its cell.
	atomic.StoreInt32(&viewerCalls, 0)
	resp = run(t, s, d, `{ a { x } viewer { name } }`, nil)
	require.Empty(t, resp.Errors)
	want = map[string]any{
		"a":      map[string]any{"x": 3},
		"viewer": map[string]any{"name": "Ada"},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&viewerCalls))
}

func TestWavesOrderDependentBatches(t *testing.T) {
	s := mustSchema(t, testSDL)
	d := newTestDispatcher()
	d.field("Query", "viewer", func(ctx context.Context, sel *Selector) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return map[string]any{"id": "u1"}, nil
	})

	var log batchLog
	d.batchField("User", "posts", nil, func(ctx context.Context, selectors []*Selector) (map[*Selector]BatchItem, error) {
		log.record(len(selectors))
		out := make(map[*Selector]BatchItem)
		for _, sel := range selectors {
			out[sel] = BatchItem{Value: []any{map[string]any{"title": "one"}}}
		}
		return out, nil
	})

	resp := run(t, s, d, `{
		v1: viewer { posts(limit: 1) { title } }
		v2: viewer { posts(limit: 2) { title } }
	}`, nil)
	require.Empty(t, resp.Errors)

	// Both viewer aliases share one resolution; the posts requests become
	// ready together in the following wave and go out as one call even
	// though their arguments differ.
	require.Equal(t, []int{2}, log.calls())
}
