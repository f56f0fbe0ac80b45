// Package selections implements the declared data dependencies of resolvers
// and checkers: parsed fragment bodies with bound variables. Declarations
// are validated once at registration time; resolution against live data
// happens per operation in the engine.
package selections

import (
	"fmt"

	"github.com/aqueductql/aqueduct/internal/language"
	"github.com/aqueductql/aqueduct/internal/schema"
)

// mainFragmentNames are the names a declaration may use for its main body.
// Auxiliary fragments carry any other name and are referenced by spreads.
var mainFragmentNames = map[string]struct{}{
	"_":    {},
	"Main": {},
}

// RequiredSelectionSet is an immutable parsed fragment body plus its
// declared variable bindings. Checker-owned sets are flagged because their
// results merge differently from resolver data.
type RequiredSelectionSet struct {
	onType     string
	selections language.SelectionSet
	variables  []Variable
	forChecker bool
}

// Options configures Parse.
type Options struct {
	// Variables declares the bindings available to the fragment body.
	Variables []Variable
	// ForChecker marks the set as checker-owned.
	ForChecker bool
	// FieldArguments are the argument definitions of the dependent field,
	// used to validate FromArgument paths. Nil when the declaration has no
	// argument-sourced variables.
	FieldArguments []*schema.InputValue
}

// Parse builds a RequiredSelectionSet from fragment source. Source is either
// a document of fragment definitions with one main body ("fragment _ on T
// {...}") or a single-field shorthand ("fieldName"). Auxiliary fragments are
// inlined so the resulting selection set is self-contained.
//
// Setup mistakes such as an unknown type, duplicate main bodies, or an
// invalid variable path are construction-time errors, never deferred to
// execution.
func Parse(s *schema.Schema, onType, source string, opts Options) (*RequiredSelectionSet, error) {
	t := s.Types[onType]
	if t == nil {
		return nil, fmt.Errorf("required selection set targets unknown type %q", onType)
	}
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil, fmt.Errorf("required selection set targets non-composite type %q", onType)
	}

	sel, err := parseBody(onType, source)
	if err != nil {
		return nil, err
	}

	for _, v := range opts.Variables {
		if err := validateVariable(s, onType, v, opts.FieldArguments); err != nil {
			return nil, err
		}
	}

	return &RequiredSelectionSet{
		onType:     onType,
		selections: sel,
		variables:  opts.Variables,
		forChecker: opts.ForChecker,
	}, nil
}

func parseBody(onType, source string) (language.SelectionSet, error) {
	if source == "" {
		return nil, nil
	}
	if isFieldShorthand(source) {
		return language.SelectionSet{&language.Field{Name: source}}, nil
	}

	frags, err := language.ParseFragments(source)
	if err != nil {
		return nil, fmt.Errorf("invalid required selection set: %w", err)
	}

	var main *language.FragmentDefinition
	aux := make(map[string]*language.FragmentDefinition)
	for _, f := range frags {
		if _, ok := mainFragmentNames[f.Name]; ok {
			if main != nil {
				return nil, fmt.Errorf("duplicate main fragment body (%q and %q)", main.Name, f.Name)
			}
			main = f
			continue
		}
		aux[f.Name] = f
	}
	if main == nil {
		if len(frags) == 1 {
			main = frags[0]
			delete(aux, main.Name)
		} else {
			return nil, fmt.Errorf("no main fragment body found among %d fragments", len(frags))
		}
	}
	if main.TypeCondition != onType {
		return nil, fmt.Errorf("main fragment is on %q, expected %q", main.TypeCondition, onType)
	}

	return inlineSpreads(main.SelectionSet, aux, map[string]bool{main.Name: true})
}

// isFieldShorthand reports whether source is a bare field name rather than
// fragment syntax.
func isFieldShorthand(source string) bool {
	for _, r := range source {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return len(source) > 0
}

// inlineSpreads replaces fragment spreads with inline fragments so the
// engine never needs the declaration's fragment table at execution time.
func inlineSpreads(sel language.SelectionSet, aux map[string]*language.FragmentDefinition, seen map[string]bool) (language.SelectionSet, error) {
	out := make(language.SelectionSet, 0, len(sel))
	for _, s := range sel {
		switch node := s.(type) {
		case *language.Field:
			if len(node.SelectionSet) > 0 {
				inner, err := inlineSpreads(node.SelectionSet, aux, seen)
				if err != nil {
					return nil, err
				}
				clone := *node
				clone.SelectionSet = inner
				out = append(out, &clone)
			} else {
				out = append(out, node)
			}
		case *language.InlineFragment:
			inner, err := inlineSpreads(node.SelectionSet, aux, seen)
			if err != nil {
				return nil, err
			}
			clone := *node
			clone.SelectionSet = inner
			out = append(out, &clone)
		case *language.FragmentSpread:
			def := aux[node.Name]
			if def == nil {
				return nil, fmt.Errorf("fragment spread %q has no definition in the declaration", node.Name)
			}
			if seen[node.Name] {
				return nil, fmt.Errorf("fragment cycle through %q", node.Name)
			}
			seen[node.Name] = true
			inner, err := inlineSpreads(def.SelectionSet, aux, seen)
			delete(seen, node.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, &language.InlineFragment{
				TypeCondition: def.TypeCondition,
				Directives:    node.Directives,
				SelectionSet:  inner,
			})
		}
	}
	return out, nil
}

// OnType returns the composite type the selections apply to.
func (r *RequiredSelectionSet) OnType() string { return r.onType }

// ForChecker reports whether the set is checker-owned.
func (r *RequiredSelectionSet) ForChecker() bool { return r.forChecker }

// IsEmpty reports whether the declaration carries no selections. Consumers
// must treat an empty set as "no extra context".
func (r *RequiredSelectionSet) IsEmpty() bool { return len(r.selections) == 0 }

// Selections returns the parsed, inlined selection set.
func (r *RequiredSelectionSet) Selections() language.SelectionSet { return r.selections }

// Variables returns the declared bindings.
func (r *RequiredSelectionSet) Variables() []Variable { return r.variables }

// TopLevelFields lists the response names selected at the top level,
// flattening inline fragments. Used to scope checker views.
func (r *RequiredSelectionSet) TopLevelFields() []string {
	return topLevelFields(r.selections, nil)
}

func topLevelFields(sel language.SelectionSet, acc []string) []string {
	for _, s := range sel {
		switch node := s.(type) {
		case *language.Field:
			name := node.Alias
			if name == "" {
				name = node.Name
			}
			acc = append(acc, name)
		case *language.InlineFragment:
			acc = topLevelFields(node.SelectionSet, acc)
		}
	}
	return acc
}
