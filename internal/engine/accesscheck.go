package engine

import (
	"context"
	"time"

	"github.com/aqueductql/aqueduct/internal/checks"
	"github.com/aqueductql/aqueduct/internal/eventbus"
	"github.com/aqueductql/aqueduct/internal/events"
	"github.com/aqueductql/aqueduct/internal/future"
	"github.com/aqueductql/aqueduct/internal/selections"
)

type fieldCheckKey struct {
	or    *ObjectResult
	field string
}

// fieldCheck returns the field-level access decision for (typeName,
// fieldName) on an object. Decisions are memoized per object per
// operation: rechecking the same field through another query path reuses
// the first run.
func (op *operation) fieldCheck(typeName, fieldName string, or *ObjectResult) *future.Value[checks.Result] {
	exec := op.eng.dispatcher.FieldChecker(typeName, fieldName)
	if exec == nil {
		return future.Of(checks.Success())
	}
	key := fieldCheckKey{or: or, field: fieldName}
	if f, ok := op.fieldChecks[key]; ok {
		return f
	}
	f := op.runCheck(exec, or)
	op.fieldChecks[key] = f
	return f
}

// typeCheck returns the type-level access decision for an object of a
// concrete type, memoized per object. The check runs in parallel with the
// object's own sub-selection; its outcome gates the field that produced
// the object, not the sub-execution.
func (op *operation) typeCheck(concrete string, or *ObjectResult) *future.Value[checks.Result] {
	exec := op.eng.dispatcher.TypeChecker(concrete)
	if exec == nil {
		return future.Of(checks.Success())
	}
	if f, ok := op.typeChecks[or]; ok {
		return f
	}
	f := op.runCheck(exec, or)
	op.typeChecks[or] = f
	return f
}

// runCheck resolves the checker's required selections against the object,
// wraps them in a restricted view, and executes the checker off the
// scheduler goroutine. A panicking checker yields a failed Result, never a
// crashed operation.
func (op *operation) runCheck(exec checks.Executor, or *ObjectResult) *future.Value[checks.Result] {
	meta := exec.Metadata()

	var dataF *future.Value[map[string]any]
	var allowed []string
	rss := exec.RequiredSelections()
	if rss == nil || rss.IsEmpty() {
		dataF = future.Of[map[string]any](nil)
	} else {
		allowed = rss.TopLevelFields()
		pruned := selections.Prune(rss.Selections(), nil)
		dataF = op.executeSelectionSet(or, or.TypeName(), pruned, nil, Path{"@check(" + meta.Coordinate() + ")"})
	}

	return future.FlatMap(dataF, func(data map[string]any) *future.Value[checks.Result] {
		view := checks.NewView(or.TypeName(), allowed, data)
		cell := future.Pending[checks.Result]()
		op.spawn(func() func() {
			start := time.Now()
			eventbus.Publish(op.ctx, events.CheckerStart{
				Checker:    meta.Name,
				Coordinate: meta.Coordinate(),
			})
			res := executeChecker(op.ctx, exec, view, meta)
			eventbus.Publish(op.ctx, events.CheckerFinish{
				Checker:    meta.Name,
				Coordinate: meta.Coordinate(),
				Allowed:    res.IsSuccess(),
				Duration:   time.Since(start),
			})
			return func() { cell.Complete(res) }
		})
		return cell
	})
}

func executeChecker(ctx context.Context, exec checks.Executor, view *checks.View, meta checks.Metadata) (res checks.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = checks.Failure(resolverPanic(meta.Coordinate(), r))
		}
	}()
	return exec.Execute(ctx, view)
}
