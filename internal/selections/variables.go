package selections

import (
	"fmt"
	"strings"

	"github.com/aqueductql/aqueduct/internal/language"
	"github.com/aqueductql/aqueduct/internal/schema"
)

// Variable declares one binding used inside a required selection set. The
// value is extracted from exactly one source: a path into the dependent
// field's object selection, a path into the root query selection, or a path
// into an argument. Paths are dot-separated and may not cross list-typed
// fields.
type Variable struct {
	Name string

	FromArgument    string
	FromObjectField string
	FromQueryField  string
}

func (v Variable) sourceCount() int {
	n := 0
	if v.FromArgument != "" {
		n++
	}
	if v.FromObjectField != "" {
		n++
	}
	if v.FromQueryField != "" {
		n++
	}
	return n
}

func validateVariable(s *schema.Schema, onType string, v Variable, fieldArgs []*schema.InputValue) error {
	if v.Name == "" {
		return fmt.Errorf("variable declared without a name")
	}
	if v.sourceCount() != 1 {
		return fmt.Errorf("variable $%s must declare exactly one source", v.Name)
	}
	switch {
	case v.FromObjectField != "":
		return validateFieldPath(s, onType, v.Name, v.FromObjectField)
	case v.FromQueryField != "":
		return validateFieldPath(s, s.QueryType, v.Name, v.FromQueryField)
	default:
		return validateArgumentPath(s, v.Name, v.FromArgument, fieldArgs)
	}
}

// validateFieldPath walks a dot path through output types. Crossing a
// list-typed field is a declaration error: a list has no single value to
// bind.
func validateFieldPath(s *schema.Schema, onType, varName, path string) error {
	typeName := onType
	for _, step := range strings.Split(path, ".") {
		t := s.Types[typeName]
		if t == nil {
			return fmt.Errorf("variable $%s: unknown type %q on path %q", varName, typeName, path)
		}
		f := t.GetField(step)
		if f == nil {
			return fmt.Errorf("variable $%s: %s has no field %q (path %q)", varName, typeName, step, path)
		}
		if schema.IsList(f.Type) {
			return fmt.Errorf("variable $%s: path %q crosses list-typed field %s.%s", varName, path, typeName, step)
		}
		typeName = schema.GetNamedType(f.Type)
	}
	return nil
}

func validateArgumentPath(s *schema.Schema, varName, path string, fieldArgs []*schema.InputValue) error {
	steps := strings.Split(path, ".")

	var cur *schema.InputValue
	for _, a := range fieldArgs {
		if a.Name == steps[0] {
			cur = a
			break
		}
	}
	if cur == nil {
		return fmt.Errorf("variable $%s: no argument %q", varName, steps[0])
	}
	if schema.IsList(cur.Type) {
		return fmt.Errorf("variable $%s: path %q crosses list-typed argument %q", varName, path, steps[0])
	}

	typeName := schema.GetNamedType(cur.Type)
	for _, step := range steps[1:] {
		t := s.Types[typeName]
		if t == nil || t.Kind != schema.TypeKindInputObject {
			return fmt.Errorf("variable $%s: cannot traverse %q through non-input type %q", varName, path, typeName)
		}
		in := t.GetInputField(step)
		if in == nil {
			return fmt.Errorf("variable $%s: input %s has no field %q (path %q)", varName, typeName, step, path)
		}
		if schema.IsList(in.Type) {
			return fmt.Errorf("variable $%s: path %q crosses list-typed field %s.%s", varName, path, typeName, step)
		}
		typeName = schema.GetNamedType(in.Type)
	}
	return nil
}

// Extract resolves a variable's value from live data. A null encountered
// mid-traversal yields a null value, never an error; a missing argument
// step falls back to the schema default when one exists.
func (v Variable) Extract(s *schema.Schema, onType string, objectData, queryData, args map[string]any, fieldArgs []*schema.InputValue) any {
	switch {
	case v.FromObjectField != "":
		return walkData(objectData, v.FromObjectField)
	case v.FromQueryField != "":
		return walkData(queryData, v.FromQueryField)
	default:
		return walkArguments(s, args, v.FromArgument, fieldArgs)
	}
}

func walkData(data map[string]any, path string) any {
	var cur any = data
	for _, step := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok || m == nil {
			return nil
		}
		cur = m[step]
		if cur == nil {
			return nil
		}
	}
	return cur
}

func walkArguments(s *schema.Schema, args map[string]any, path string, fieldArgs []*schema.InputValue) any {
	steps := strings.Split(path, ".")

	var def *schema.InputValue
	for _, a := range fieldArgs {
		if a.Name == steps[0] {
			def = a
			break
		}
	}

	cur, ok := args[steps[0]]
	if !ok {
		if def != nil && def.HasDefault {
			cur = def.DefaultValue
		} else {
			return nil
		}
	}

	typeName := ""
	if def != nil {
		typeName = schema.GetNamedType(def.Type)
	}
	for _, step := range steps[1:] {
		m, isMap := cur.(map[string]any)
		if !isMap || m == nil {
			return nil
		}
		var stepDef *schema.InputValue
		if t := s.Types[typeName]; t != nil {
			stepDef = t.GetInputField(step)
		}
		next, present := m[step]
		if !present {
			if stepDef != nil && stepDef.HasDefault {
				next = stepDef.DefaultValue
			} else {
				return nil
			}
		}
		cur = next
		if stepDef != nil {
			typeName = schema.GetNamedType(stepDef.Type)
		} else {
			typeName = ""
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Prune applies @skip/@include to a declared selection set. Conditions on
// literals or already-bound variables are evaluated eagerly and the
// selection dropped or kept; a condition on an unresolved variable keeps
// the selection (fail-open) for later re-evaluation.
func Prune(sel language.SelectionSet, vars map[string]any) language.SelectionSet {
	out := make(language.SelectionSet, 0, len(sel))
	for _, s := range sel {
		switch node := s.(type) {
		case *language.Field:
			if !includeNode(node.Directives, vars) {
				continue
			}
			if len(node.SelectionSet) > 0 {
				clone := *node
				clone.SelectionSet = Prune(node.SelectionSet, vars)
				out = append(out, &clone)
			} else {
				out = append(out, node)
			}
		case *language.InlineFragment:
			if !includeNode(node.Directives, vars) {
				continue
			}
			clone := *node
			clone.SelectionSet = Prune(node.SelectionSet, vars)
			out = append(out, &clone)
		default:
			out = append(out, s)
		}
	}
	return out
}

func includeNode(directives language.DirectiveList, vars map[string]any) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if cond, known := directiveCondition(skip, vars); known && cond {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if cond, known := directiveCondition(include, vars); known && !cond {
			return false
		}
	}
	return true
}

// directiveCondition evaluates the `if` argument. known is false when the
// condition references a variable with no binding yet.
func directiveCondition(d *language.Directive, vars map[string]any) (cond, known bool) {
	arg := d.Arguments.ForName("if")
	if arg == nil || arg.Value == nil {
		return false, false
	}
	switch arg.Value.Kind {
	case language.BooleanValue:
		return arg.Value.Raw == "true", true
	case language.Variable:
		v, ok := vars[arg.Value.Raw]
		if !ok {
			return false, false
		}
		b, isBool := v.(bool)
		return b && isBool, isBool
	default:
		return false, false
	}
}
