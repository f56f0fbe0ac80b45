// Package checks defines the access-control contract: checker executors
// attached to fields and types, their typed results, and the law for
// combining a field-level decision with a type-level one.
package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aqueductql/aqueduct/internal/selections"
)

// Result is the outcome of an access check: Success or Error. It is a typed
// value, not an exception channel; a panic inside a checker is converted
// into a failed Result by the runner.
type Result struct {
	errs []error
}

// Success returns the passing Result.
func Success() Result { return Result{} }

// Failure returns a failed Result carrying errs. Nil entries are dropped;
// with no errors left it degenerates to Success.
func Failure(errs ...error) Result {
	kept := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	return Result{errs: kept}
}

// IsSuccess reports whether the check passed.
func (r Result) IsSuccess() bool { return len(r.errs) == 0 }

// Errors returns the underlying errors of a failed Result.
func (r Result) Errors() []error { return r.errs }

// AsError flattens a failed Result into one error, or nil on success.
func (r Result) AsError() error {
	switch len(r.errs) {
	case 0:
		return nil
	case 1:
		return r.errs[0]
	default:
		return errors.Join(r.errs...)
	}
}

// Combine merges two Results. Success is the identity on either side; two
// failures concatenate their errors with a's first. Callers pass the
// field-level result as a so field-sourced errors order before type-sourced
// ones.
func Combine(a, b Result) Result {
	if a.IsSuccess() {
		return b
	}
	if b.IsSuccess() {
		return a
	}
	merged := make([]error, 0, len(a.errs)+len(b.errs))
	merged = append(merged, a.errs...)
	merged = append(merged, b.errs...)
	return Result{errs: merged}
}

// Metadata identifies a checker: its name and the schema coordinate it
// guards. FieldName is empty for type-level checkers.
type Metadata struct {
	Name      string
	TypeName  string
	FieldName string
}

// Coordinate renders the guarded schema coordinate ("User.ssn" or "User").
func (m Metadata) Coordinate() string {
	if m.FieldName == "" {
		return m.TypeName
	}
	return m.TypeName + "." + m.FieldName
}

// Executor is one access-control decision unit. Required selections declare
// the data the checker needs; Execute receives only that data through a
// restricted View.
type Executor interface {
	Metadata() Metadata

	// RequiredSelections returns the checker's declared data dependency,
	// or nil when the checker needs no context.
	RequiredSelections() *selections.RequiredSelectionSet

	// Execute runs the check. Implementations return a typed Result and
	// must not panic; the engine converts panics into failed Results and
	// re-propagates cancellation.
	Execute(ctx context.Context, view *View) Result
}

// ErrUndeclaredField is returned when a checker reads a field outside its
// declared required selections.
var ErrUndeclaredField = errors.New("field not declared in checker's required selections")

// View exposes resolved data to a checker, restricted to the fields its
// required selection set declared. This enforces the checker's own stated
// data contract.
type View struct {
	typeName string
	allowed  map[string]struct{}
	data     map[string]any
}

// NewView builds a restricted view over resolved data. allowed lists the
// top-level field names the checker declared.
func NewView(typeName string, allowed []string, data map[string]any) *View {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return &View{typeName: typeName, allowed: set, data: data}
}

// TypeName returns the object type the view is scoped to.
func (v *View) TypeName() string { return v.typeName }

// IsEmpty reports whether no fields are visible, i.e. the checker declared
// no required selections.
func (v *View) IsEmpty() bool { return len(v.allowed) == 0 }

// Get returns the value of a declared top-level field.
func (v *View) Get(field string) (any, error) {
	if _, ok := v.allowed[field]; !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUndeclaredField, v.typeName, field)
	}
	if v.data == nil {
		return nil, nil
	}
	return v.data[field], nil
}

// GetPath traverses a dot-separated path. The first step must be declared;
// a null anywhere along the path yields nil without error.
func (v *View) GetPath(path string) (any, error) {
	steps := strings.Split(path, ".")
	cur, err := v.Get(steps[0])
	if err != nil {
		return nil, err
	}
	for _, step := range steps[1:] {
		if cur == nil {
			return nil, nil
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot traverse %q through non-object value at %q", path, step)
		}
		cur = m[step]
	}
	return cur, nil
}
