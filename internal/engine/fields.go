package engine

import (
	"github.com/aqueductql/aqueduct/internal/language"
	"github.com/aqueductql/aqueduct/internal/schema"
)

// collectedFieldMap preserves field order from the original query.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{index: make(map[string]int)}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

// collectFields groups a selection set by response name for a concrete
// object type. Fragment type conditions match through interface and union
// membership, not just by name.
func (op *operation) collectFields(objectType *schema.Type, selectionSet language.SelectionSet, vars map[string]any) *collectedFieldMap {
	grouped := newCollectedFieldMap()
	op.collectFieldsImpl(objectType, selectionSet, vars, grouped, make(map[string]bool))
	return grouped
}

func (op *operation) collectFieldsImpl(objectType *schema.Type, selectionSet language.SelectionSet, vars map[string]any, grouped *collectedFieldMap, visited map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(sel.Directives, vars) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(sel.Directives, vars) {
				continue
			}
			if sel.TypeCondition != "" && !op.eng.schema.Implements(objectType.Name, sel.TypeCondition) {
				continue
			}
			op.collectFieldsImpl(objectType, sel.SelectionSet, vars, grouped, visited)

		case *language.FragmentSpread:
			if !shouldIncludeNode(sel.Directives, vars) {
				continue
			}
			if visited[sel.Name] {
				continue
			}
			visited[sel.Name] = true

			def := op.fragmentDefinition(sel.Name)
			if def == nil {
				continue
			}
			if def.TypeCondition != "" && !op.eng.schema.Implements(objectType.Name, def.TypeCondition) {
				continue
			}
			if !shouldIncludeNode(def.Directives, vars) {
				continue
			}
			op.collectFieldsImpl(objectType, def.SelectionSet, vars, grouped, visited)
		}
	}
}

// shouldIncludeNode evaluates @skip and @include against bound variables.
func shouldIncludeNode(directives language.DirectiveList, vars map[string]any) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := directiveArgument(skip, "if", vars).(bool); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := directiveArgument(include, "if", vars).(bool); ok && !v {
			return false
		}
	}
	return true
}

func directiveArgument(directive *language.Directive, argName string, vars map[string]any) any {
	for _, arg := range directive.Arguments {
		if arg.Name == argName {
			return valueFromASTWithVars(arg.Value, vars)
		}
	}
	return nil
}

func (op *operation) fragmentDefinition(name string) *language.FragmentDefinition {
	if op.doc == nil {
		return nil
	}
	if fd := op.doc.Fragments.ForName(name); fd != nil {
		return fd
	}
	return nil
}

func getFieldDefinition(objectType *schema.Type, fieldName string) *schema.Field {
	for _, field := range objectType.Fields {
		if field.Name == fieldName {
			return field
		}
	}
	return nil
}

// mergeSelectionSets concatenates the sub-selections of one field group.
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}
