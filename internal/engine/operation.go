package engine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aqueductql/aqueduct/internal/checks"
	"github.com/aqueductql/aqueduct/internal/eventbus"
	"github.com/aqueductql/aqueduct/internal/events"
	"github.com/aqueductql/aqueduct/internal/future"
	"github.com/aqueductql/aqueduct/internal/globalid"
	"github.com/aqueductql/aqueduct/internal/language"
	"github.com/aqueductql/aqueduct/internal/schema"
	"github.com/aqueductql/aqueduct/internal/selections"
)

// operation is the state of one executing request. Everything here is
// owned by the scheduler goroutine running op.run; tenant code never
// touches it directly and reports back through the ready queue.
type operation struct {
	eng  *Engine
	ctx  context.Context
	doc  *language.QueryDocument
	vars map[string]any

	queryRoot *ObjectResult
	objects   map[string]*ObjectResult

	fieldChecks map[fieldCheckKey]*future.Value[checks.Result]
	typeChecks  map[*ObjectResult]*future.Value[checks.Result]

	collector *collector
	ready     chan func()
	inflight  int
	group     *errgroup.Group

	// reentries counts re-entrant executions whose caller is blocked
	// inside an in-flight batch. While one is outstanding, waves flush
	// eagerly so the caller's dependency chain cannot deadlock behind
	// its own batch call.
	reentries int

	errors   []GraphQLError
	canceled bool
	cancels  []func(error)
	finished chan struct{}
}

func newOperation(eng *Engine, ctx context.Context, doc *language.QueryDocument, vars map[string]any) *operation {
	group, gctx := errgroup.WithContext(ctx)
	op := &operation{
		eng:         eng,
		ctx:         gctx,
		doc:         doc,
		vars:        vars,
		objects:     make(map[string]*ObjectResult),
		fieldChecks: make(map[fieldCheckKey]*future.Value[checks.Result]),
		typeChecks:  make(map[*ObjectResult]*future.Value[checks.Result]),
		collector:   newCollector(),
		ready:       make(chan func(), 16),
		group:       group,
		finished:    make(chan struct{}),
	}
	op.queryRoot = newObjectResult(eng.schema.QueryType, future.Of[map[string]any](nil))
	return op
}

// run drives the operation to completion: drain ready continuations, flush
// accumulated batches at wave quiescence, block for in-flight tenant work,
// repeat until the root value settles.
func (op *operation) run(rootType string, sel language.SelectionSet) map[string]any {
	rootOR := op.queryRoot
	if rootType != op.eng.schema.QueryType {
		rootOR = newObjectResult(rootType, future.Of[map[string]any](nil))
	}
	rootF := op.executeSelectionSet(rootOR, rootType, sel, op.vars, Path{})

	ctxDone := op.ctx.Done()
	for {
		draining := true
		for draining {
			select {
			case cont := <-op.ready:
				cont()
			default:
				draining = false
			}
		}

		// A wave flushes at quiescence: everything the previous wave
		// unlocked has expanded and nothing is in flight. Outstanding
		// re-entries force eager flushing instead.
		if op.collector.pending() && (op.inflight == 0 || op.reentries > 0) {
			op.flush()
			continue
		}
		if rootF.IsDone() && op.inflight == 0 {
			break
		}
		if op.inflight == 0 {
			op.abort(frameworkErrorf("operation stalled with incomplete response"))
			break
		}

		select {
		case cont := <-op.ready:
			cont()
		case <-ctxDone:
			op.cancel(op.ctx.Err())
			ctxDone = nil
		}
	}

	op.group.Wait()
	close(op.finished)

	data, err, done := rootF.Peek()
	if !done {
		return nil
	}
	if err != nil {
		if !future.IsCanceled(err) {
			op.addError(err.Error(), Path{})
		}
		return nil
	}
	return data
}

// cancel abandons every outstanding cell. In-flight tenant calls are
// allowed to finish against the canceled context; their late results find
// already-settled cells and are discarded.
func (op *operation) cancel(cause error) {
	if op.canceled {
		return
	}
	op.canceled = true
	op.addError("operation canceled: "+cause.Error(), Path{})
	wrapped := future.CanceledError(cause)
	for _, fn := range op.cancels {
		fn(wrapped)
	}
}

func (op *operation) abort(err *FrameworkError) {
	op.eng.logger.Error("operation aborted", zap.Error(err))
	op.addErrorCode(err.Error(), Path{}, codeFramework)
	if op.canceled {
		return
	}
	op.canceled = true
	for _, fn := range op.cancels {
		fn(err)
	}
}

// spawn runs fn on a worker goroutine under the operation's root scope.
// The continuation fn returns is delivered back to the scheduler.
func (op *operation) spawn(fn func() func()) {
	op.inflight++
	op.group.Go(func() error {
		cont := fn()
		op.ready <- func() {
			op.inflight--
			cont()
		}
		return nil
	})
}

func registerCancel[T any](op *operation, cell *future.Value[T]) {
	op.cancels = append(op.cancels, func(cause error) { cell.Cancel(cause) })
}

// flush issues one batch call per resolver for everything that became
// ready in the current wave.
func (op *operation) flush() {
	groups := op.collector.drain()
	if op.canceled {
		return
	}
	for _, g := range groups {
		g := g
		selectors := make([]*Selector, len(g.items))
		for i, it := range g.items {
			selectors[i] = it.sel
		}
		op.spawn(func() func() {
			start := time.Now()
			eventbus.Publish(op.ctx, events.ResolverBatchStart{
				Resolver: g.identity,
				Kind:     g.kind,
				Size:     len(selectors),
			})
			results, err := invokeBatch(op.ctx, g, selectors)
			eventbus.Publish(op.ctx, events.ResolverBatchFinish{
				Resolver: g.identity,
				Kind:     g.kind,
				Size:     len(selectors),
				Err:      err,
				Duration: time.Since(start),
			})
			return func() { op.settleBatch(g, results, err) }
		})
	}
}

func invokeBatch(ctx context.Context, g *batchGroup, selectors []*Selector) (results map[*Selector]BatchItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, resolverPanic(g.identity, r)
		}
	}()
	return g.resolve(ctx, selectors)
}

// settleBatch fans a batch outcome out to the waiting cells. A whole-call
// error fails every selector; a result map must cover every selector it
// was given, and an omitted one is a contract violation against that
// selector alone.
func (op *operation) settleBatch(g *batchGroup, results map[*Selector]BatchItem, err error) {
	if err != nil {
		if future.IsCanceled(err) {
			for _, it := range g.items {
				it.cell.Cancel(err)
			}
			return
		}
		werr := err
		if _, ok := err.(*TenantResolverError); !ok {
			werr = resolverError(g.identity, err)
		}
		if tre, ok := werr.(*TenantResolverError); ok && tre.Panicked {
			op.eng.logger.Error("resolver batch panicked",
				zap.String("resolver", g.identity),
				zap.Error(werr))
		}
		for _, it := range g.items {
			it.cell.Fail(werr)
		}
		return
	}

	matched := 0
	for _, it := range g.items {
		res, ok := results[it.sel]
		if !ok {
			it.cell.Fail(usageErrorf(g.identity, "batch result omitted selector %s", it.sel.Coordinate()))
			continue
		}
		matched++
		switch {
		case res.Err != nil && future.IsCanceled(res.Err):
			it.cell.Cancel(res.Err)
		case res.Err != nil:
			it.cell.Fail(resolverError(g.identity, res.Err))
		default:
			it.cell.Complete(res.Value)
		}
	}
	if matched < len(g.items) {
		op.eng.logger.Warn("batch result omitted selectors",
			zap.String("resolver", g.identity),
			zap.Int("omitted", len(g.items)-matched))
	}
	if matched < len(results) {
		op.eng.logger.Warn("batch result contained unknown selectors",
			zap.String("resolver", g.identity),
			zap.Int("unknown", len(results)-matched))
	}
}

// executeSelectionSet resolves a selection set against an object and
// assembles the response map. A non-null field completing null nullifies
// the whole object, except at the response root.
func (op *operation) executeSelectionSet(or *ObjectResult, typeName string, sel language.SelectionSet, vars map[string]any, path Path) *future.Value[map[string]any] {
	objectType := op.eng.schema.Types[typeName]
	if objectType == nil {
		return future.Err[map[string]any](frameworkErrorf("unknown object type %s", typeName))
	}
	atRoot := len(path) == 0
	grouped := op.collectFields(objectType, sel, vars)

	type slot struct {
		name    string
		nonNull bool
		f       *future.Value[any]
	}
	slots := make([]slot, 0, len(grouped.fields))
	for _, cf := range grouped.fields {
		fieldPath := appendPath(path, cf.ResponseName)
		first := cf.Fields[0]
		if first.Name == "__typename" {
			slots = append(slots, slot{name: cf.ResponseName, f: future.Of[any](typeName)})
			continue
		}
		fieldDef := getFieldDefinition(objectType, first.Name)
		if fieldDef == nil {
			op.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", first.Name, typeName), fieldPath)
			continue
		}
		f := op.executeFieldGroup(or, objectType, fieldDef, cf.Fields, vars, fieldPath)
		slots = append(slots, slot{
			name:    cf.ResponseName,
			nonNull: schema.IsNonNull(fieldDef.Type) && !atRoot,
			f:       f,
		})
	}
	if len(slots) == 0 {
		return future.Of(map[string]any{})
	}

	cells := make([]*future.Value[any], len(slots))
	for i := range slots {
		cells[i] = slots[i].f
	}
	return future.Map(future.Join(cells), func(values []any) (map[string]any, error) {
		m := make(map[string]any, len(slots))
		for i, s := range slots {
			v := values[i]
			if isNullish(v) {
				v = nil
			}
			if s.nonNull && v == nil {
				return nil, nil
			}
			m[s.name] = v
		}
		return m, nil
	})
}

// executeFieldGroup resolves one response position: raw value, field-level
// access check, and value completion, merged into the final field result.
func (op *operation) executeFieldGroup(or *ObjectResult, objectType *schema.Type, fieldDef *schema.Field, fields []*language.Field, vars map[string]any, path Path) *future.Value[any] {
	args := op.coerceArgumentValues(fieldDef, fields[0].Arguments, vars, path)

	rawF := op.resolveFieldValue(or, objectType.Name, fieldDef, fields, args)
	checkF := op.fieldCheck(objectType.Name, fieldDef.Name, or)
	completedF := future.FlatMap(rawF, func(v any) *future.Value[any] {
		return op.completeValue(fieldDef.Type, fields, v, vars, path)
	})
	return op.finishField(completedF, checkF, path)
}

// finishField merges a field's completed value with its field-level check
// and any type-level check failure that surfaced during completion. Field
// errors order before type errors; any denial nulls the field.
func (op *operation) finishField(dataF *future.Value[any], checkF *future.Value[checks.Result], path Path) *future.Value[any] {
	final := future.Pending[any]()
	remaining := 2
	var dataV any
	var dataErr error
	fieldRes := checks.Success()
	var checkErr error

	settle := func() {
		if remaining > 0 {
			return
		}
		typeRes := checks.Success()
		if cf, ok := dataErr.(*checkFailure); ok {
			typeRes = cf.result
			dataErr = nil
			dataV = nil
		}
		if dataErr != nil && future.IsCanceled(dataErr) {
			final.Fail(dataErr)
			return
		}
		if checkErr != nil {
			final.Fail(checkErr)
			return
		}
		combined := checks.Combine(fieldRes, typeRes)
		if !combined.IsSuccess() {
			for _, cerr := range combined.Errors() {
				op.addErrorCode(cerr.Error(), path, codeAccessDenied)
			}
			final.Complete(nil)
			return
		}
		if dataErr != nil {
			op.addErrorCode(dataErr.Error(), path, errorCode(dataErr))
			final.Complete(nil)
			return
		}
		final.Complete(dataV)
	}

	dataF.Subscribe(func(v any, err error) {
		dataV, dataErr = v, err
		remaining--
		settle()
	})
	checkF.Subscribe(func(r checks.Result, err error) {
		if err != nil {
			checkErr = err
		} else {
			fieldRes = r
		}
		remaining--
		settle()
	})
	return final
}

// resolveFieldValue produces a field's raw value. Fields without a
// registered resolver project from the object's source data; resolver
// fields memoize through the ObjectResult and schedule at most one
// resolution per (field, arguments) pair per object per operation.
func (op *operation) resolveFieldValue(or *ObjectResult, typeName string, fieldDef *schema.Field, fields []*language.Field, args map[string]any) *future.Value[any] {
	exec := op.eng.dispatcher.FieldResolver(typeName, fieldDef.Name)
	if exec == nil {
		return or.project(fieldDef.Name)
	}

	cell, created := or.GetOrCreate(fieldDef.Name, canonicalArguments(args))
	if !created {
		return cell
	}
	registerCancel(op, cell)

	sel := &Selector{
		TypeName:   typeName,
		FieldName:  fieldDef.Name,
		Arguments:  args,
		Selections: mergeSelectionSets(fields),
		op:         op,
	}
	inputsF := op.resolveExecutorInputs(exec, or, typeName, fieldDef, args)
	inputsF.Subscribe(func(in executorInputs, err error) {
		if err != nil {
			if future.IsCanceled(err) {
				cell.Cancel(err)
			} else {
				cell.Fail(err)
			}
			return
		}
		sel.ObjectData = in.objectData
		sel.QueryData = in.queryData
		sel.Variables = in.variables
		op.collector.enqueue("field", exec.Metadata(), exec.ResolveBatch, sel, cell)
	})
	return cell
}

type executorInputs struct {
	objectData map[string]any
	queryData  map[string]any
	variables  map[string]any
}

// resolveExecutorInputs resolves a resolver's declared required selections
// and variable bindings. Argument-sourced variables bind first; the object
// selection resolves with those bindings and feeds object-sourced
// variables; the query selection resolves last and feeds query-sourced
// ones.
func (op *operation) resolveExecutorInputs(exec FieldResolverExecutor, or *ObjectResult, typeName string, fieldDef *schema.Field, args map[string]any) *future.Value[executorInputs] {
	objRSS := exec.ObjectSelections()
	queryRSS := exec.QuerySelections()
	coordinate := exec.Metadata().Coordinate()
	s := op.eng.schema

	var declared []selections.Variable
	if objRSS != nil {
		declared = append(declared, objRSS.Variables()...)
	}
	if queryRSS != nil {
		declared = append(declared, queryRSS.Variables()...)
	}

	vars := make(map[string]any)
	for _, v := range declared {
		if v.FromArgument != "" {
			vars[v.Name] = v.Extract(s, typeName, nil, nil, args, fieldDef.Arguments)
		}
	}

	objDataF := future.Of[map[string]any](nil)
	if objRSS != nil && !objRSS.IsEmpty() {
		pruned := selections.Prune(objRSS.Selections(), vars)
		objDataF = op.executeSelectionSet(or, typeName, pruned, vars, Path{"@requires(" + coordinate + ")"})
	}
	return future.FlatMap(objDataF, func(objData map[string]any) *future.Value[executorInputs] {
		for _, v := range declared {
			if v.FromObjectField != "" {
				vars[v.Name] = v.Extract(s, typeName, objData, nil, nil, nil)
			}
		}
		queryDataF := future.Of[map[string]any](nil)
		if queryRSS != nil && !queryRSS.IsEmpty() {
			pruned := selections.Prune(queryRSS.Selections(), vars)
			queryDataF = op.executeSelectionSet(op.queryRoot, s.QueryType, pruned, vars, Path{"@requires(" + coordinate + ")"})
		}
		return future.Map(queryDataF, func(queryData map[string]any) (executorInputs, error) {
			for _, v := range declared {
				if v.FromQueryField != "" {
					vars[v.Name] = v.Extract(s, typeName, nil, queryData, nil, nil)
				}
			}
			return executorInputs{objectData: objData, queryData: queryData, variables: vars}, nil
		})
	})
}

// completeValue walks the field's type wrappers and renders the raw value.
func (op *operation) completeValue(fieldType *schema.TypeRef, fields []*language.Field, result any, vars map[string]any, path Path) *future.Value[any] {
	if schema.IsNonNull(fieldType) {
		inner := op.completeValue(schema.Unwrap(fieldType), fields, result, vars, path)
		return future.Map(inner, func(v any) (any, error) {
			if isNullish(v) {
				if !op.hasErrorAtPath(path) {
					op.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path)
				}
				return nil, nil
			}
			return v, nil
		})
	}
	if isNullish(result) {
		return future.Of[any](nil)
	}
	if schema.IsList(fieldType) {
		return op.completeListValue(fieldType, fields, result, vars, path)
	}

	namedType := schema.GetNamedType(fieldType)
	typeObj := op.eng.schema.Types[namedType]
	if typeObj == nil {
		op.addError(fmt.Sprintf("Unknown type: %s", namedType), path)
		return future.Of[any](nil)
	}
	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		v, err := op.serializeLeaf(typeObj, result)
		if err != nil {
			op.addError(err.Error(), path)
			return future.Of[any](nil)
		}
		return future.Of(v)
	case schema.TypeKindObject, schema.TypeKindInterface, schema.TypeKindUnion:
		return op.completeObjectValue(namedType, typeObj, fields, result, vars, path)
	default:
		op.addError(fmt.Sprintf("Cannot complete value of unexpected type kind: %s", typeObj.Kind), path)
		return future.Of[any](nil)
	}
}

func (op *operation) completeListValue(listType *schema.TypeRef, fields []*language.Field, result any, vars map[string]any, path Path) *future.Value[any] {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice {
			op.addError(fmt.Sprintf("Expected list value, got %T", result), path)
			return future.Of[any](nil)
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}
	if len(items) == 0 {
		return future.Of[any]([]any{})
	}

	inner := schema.Unwrap(listType)
	innerNonNull := schema.IsNonNull(inner)
	futures := make([]*future.Value[any], len(items))
	for i, item := range items {
		futures[i] = op.completeValue(inner, fields, item, vars, appendPath(path, i))
	}

	return future.Map(future.Join(futures), func(values []any) (any, error) {
		completed := make([]any, len(values))
		for i, v := range values {
			if isNullish(v) {
				v = nil
			}
			if innerNonNull && v == nil {
				return nil, nil
			}
			completed[i] = v
		}
		return completed, nil
	})
}

// completeObjectValue turns a raw object value into a response map. The
// value may be plain field data, a global ID reference resolved through
// the node loader, or an ObjectResult from a re-entrant execution. The
// type-level check runs in parallel with the sub-selection and gates the
// combined result.
func (op *operation) completeObjectValue(named string, typeObj *schema.Type, fields []*language.Field, result any, vars map[string]any, path Path) *future.Value[any] {
	concrete, childOR, err := op.objectFor(named, typeObj, result)
	if err != nil {
		op.addErrorCode(err.Error(), path, errorCode(err))
		return future.Of[any](nil)
	}
	sub := mergeSelectionSets(fields)

	return future.FlatMap(childOR.Source(), func(src map[string]any) *future.Value[any] {
		if childOR.node && src == nil {
			// Node does not exist.
			return future.Of[any](nil)
		}
		subF := op.executeSelectionSet(childOR, concrete, sub, vars, path)
		checkF := op.typeCheck(concrete, childOR)

		out := future.Pending[any]()
		remaining := 2
		var data map[string]any
		var dataErr error
		res := checks.Success()
		var resErr error
		done := func() {
			if remaining > 0 {
				return
			}
			switch {
			case resErr != nil:
				out.Fail(resErr)
			case !res.IsSuccess():
				out.Fail(&checkFailure{result: res})
			case dataErr != nil:
				out.Fail(dataErr)
			case data == nil:
				out.Complete(nil)
			default:
				out.Complete(data)
			}
		}
		subF.Subscribe(func(m map[string]any, err error) {
			data, dataErr = m, err
			remaining--
			done()
		})
		checkF.Subscribe(func(r checks.Result, err error) {
			res, resErr = r, err
			remaining--
			done()
		})
		return out
	})
}

// objectFor maps a raw object value to its concrete type and ObjectResult.
func (op *operation) objectFor(named string, typeObj *schema.Type, result any) (string, *ObjectResult, error) {
	switch v := result.(type) {
	case globalid.ID:
		return op.nodeObject(named, v)
	case *ObjectResult:
		if !op.eng.schema.Implements(v.TypeName(), named) {
			return "", nil, usageErrorf("", "object of type %s cannot satisfy %s", v.TypeName(), named)
		}
		return v.TypeName(), v, nil
	case map[string]any:
		concrete := named
		if typeObj.Kind != schema.TypeKindObject {
			tn, _ := v["__typename"].(string)
			if tn == "" {
				return "", nil, usageErrorf("", "abstract type %s requires __typename in resolved data", named)
			}
			concrete = tn
		}
		ct := op.eng.schema.Types[concrete]
		if ct == nil || ct.Kind != schema.TypeKindObject {
			return "", nil, usageErrorf("", "%q is not an object type", concrete)
		}
		if !op.eng.schema.Implements(concrete, named) {
			return "", nil, usageErrorf("", "type %s cannot satisfy %s", concrete, named)
		}
		return concrete, newObjectResult(concrete, future.Of(v)), nil
	default:
		return "", nil, usageErrorf("", "cannot complete value of type %T as %s", result, named)
	}
}

func (op *operation) nodeObject(named string, id globalid.ID) (string, *ObjectResult, error) {
	ct := op.eng.schema.Types[id.Type]
	if ct == nil || ct.Kind != schema.TypeKindObject {
		return "", nil, usageErrorf("", "reference to unknown object type %q", id.Type)
	}
	if !op.eng.schema.Implements(id.Type, named) {
		return "", nil, usageErrorf("", "reference to %s where %s expected", id.Type, named)
	}
	return id.Type, op.objectForID(id), nil
}

// objectForID returns the operation-wide ObjectResult for a node identity,
// scheduling its load on first sight. Every query path reaching the same
// ID shares this result and its memoized field cells.
func (op *operation) objectForID(id globalid.ID) *ObjectResult {
	key := id.String()
	if or, ok := op.objects[key]; ok {
		return or
	}
	raw := future.Pending[any]()
	registerCancel(op, raw)
	source := future.Map(raw, func(v any) (map[string]any, error) {
		if v == nil {
			return nil, nil
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, usageErrorf(id.Type, "node resolver returned %T, want map[string]any", v)
		}
		return m, nil
	})
	or := newNodeResult(id, source)
	op.objects[key] = or

	exec := op.eng.dispatcher.NodeResolver(id.Type)
	if exec == nil {
		raw.Fail(usageErrorf("", "no node resolver registered for type %s", id.Type))
		return or
	}
	sel := &Selector{TypeName: id.Type, NodeID: id, op: op}
	op.collector.enqueue("node", exec.Metadata(), exec.ResolveBatch, sel, raw)
	return or
}

// reenterQueryRoot executes an ad-hoc selection set against the running
// operation's query root, sharing its memoization. Called from resolver
// goroutines; the work is marshaled onto the scheduler.
func (op *operation) reenterQueryRoot(source string) *future.Value[map[string]any] {
	out := future.Pending[map[string]any]()
	queryType := op.eng.schema.QueryType
	sel, err := language.ParseSelectionSet(queryType, source)
	if err != nil {
		out.Fail(usageErrorf("", "invalid selection set: %v", err))
		return out
	}
	thunk := func() {
		op.reentries++
		inner := op.executeSelectionSet(op.queryRoot, queryType, sel, op.vars, Path{"@query"})
		inner.Subscribe(func(m map[string]any, err error) {
			op.reentries--
			if err != nil {
				out.Fail(err)
				return
			}
			out.Complete(m)
		})
	}
	select {
	case op.ready <- thunk:
	case <-op.finished:
		out.Fail(frameworkErrorf("selection executed after operation finished"))
	}
	return out
}

func (op *operation) addError(message string, path Path) {
	op.errors = append(op.errors, GraphQLError{Message: message, Path: path})
}

func (op *operation) addErrorCode(message string, path Path, code string) {
	op.errors = append(op.errors, GraphQLError{
		Message:    message,
		Path:       path,
		Extensions: map[string]any{"code": code},
	})
}

// hasErrorAtPath reports whether an error with the given path already
// exists, so non-null propagation does not double-report.
func (op *operation) hasErrorAtPath(path Path) bool {
	for _, err := range op.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// isNullish returns true for nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
