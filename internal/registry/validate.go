package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aqueductql/aqueduct/internal/schema"
)

// CoverageValidator checks that every field the schema marks with
// @resolver has a registered resolver. A marked field with no executor
// would silently resolve to null in production, so the gap is fatal.
type CoverageValidator struct{}

func (CoverageValidator) Validate(s *schema.Schema, r *Registry) error {
	var missing []string
	for _, t := range s.Types {
		if t.Kind != schema.TypeKindObject {
			continue
		}
		for _, f := range t.Fields {
			if f.GetDirective("resolver") == nil {
				continue
			}
			if r.FieldResolver(t.Name, f.Name) == nil {
				missing = append(missing, t.Name+"."+f.Name)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("fields marked @resolver have no registered resolver: %s", strings.Join(missing, ", "))
}

// NodeValidator checks that every object type referenced through @idOf has
// a node resolver, so global ID references resolved at runtime always
// have a loader.
type NodeValidator struct{}

func (NodeValidator) Validate(s *schema.Schema, r *Registry) error {
	var missing []string
	seen := make(map[string]bool)
	for _, t := range s.Types {
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			continue
		}
		for _, f := range t.Fields {
			use := f.GetDirective("idOf")
			if use == nil {
				continue
			}
			target, _ := use.Args["type"].(string)
			if target == "" || seen[target] {
				continue
			}
			seen[target] = true
			if r.NodeResolver(target) == nil {
				missing = append(missing, target)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("types referenced through @idOf have no node resolver: %s", strings.Join(missing, ", "))
}
