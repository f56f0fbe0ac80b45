package engine

import (
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/aqueductql/aqueduct/internal/future"
	"github.com/aqueductql/aqueduct/internal/globalid"
	"github.com/aqueductql/aqueduct/internal/language"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Selector is one unit of requested resolution handed to a resolver. For
// field resolvers it identifies a (type, field, arguments) request plus the
// resolver's declared context data; for node resolvers it carries the
// global ID being loaded.
//
// Selectors are compared by identity: a batch resolver associates results
// with the exact *Selector values it received, never with positions.
type Selector struct {
	TypeName  string
	FieldName string

	// NodeID is set only for node selectors.
	NodeID globalid.ID

	// Arguments are the coerced argument values of the field.
	Arguments map[string]any

	// ObjectData and QueryData hold the resolver's declared required
	// selections, resolved against the parent object and the query root.
	// Nil when the resolver declared none.
	ObjectData map[string]any
	QueryData  map[string]any

	// Variables are the resolver's declared variable bindings, fully
	// extracted by the time the resolver runs.
	Variables map[string]any

	// Selections is the sub-selection requested by the first call site
	// that scheduled this resolution. Advisory: resolvers may use it to
	// narrow what they fetch.
	Selections language.SelectionSet

	op *operation
}

// Coordinate renders the schema coordinate being resolved.
func (s *Selector) Coordinate() string {
	if s.FieldName == "" {
		return s.TypeName
	}
	return s.TypeName + "." + s.FieldName
}

// ExecuteSelectionSet re-enters the running operation's query root with an
// ad-hoc selection set. The resolution shares the operation's memoization:
// fields already resolved elsewhere in the operation are not resolved
// again. Valid only while the owning operation is running.
func (s *Selector) ExecuteSelectionSet(source string) *future.Value[map[string]any] {
	return s.op.reenterQueryRoot(source)
}

// canonicalArguments renders coerced arguments as a stable string so that
// two argument maps with equal contents always memoize to the same cell.
// Map keys are sorted by the encoder; top-level keys are additionally
// ordered here so the output is deterministic across Go map iteration.
func canonicalArguments(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(args[k])
		if err != nil {
			vb = []byte("null")
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return string(buf)
}
