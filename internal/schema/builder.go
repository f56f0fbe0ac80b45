package schema

import (
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// BuildFromSDL parses an SDL string and returns the compiled Schema.
// The engine never compiles schemas on the request path; this entry point
// exists for bootstrap and tests.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, err
	}

	s := NewSchema("")
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective).
		AddDirective(resolverDirective).
		AddDirective(idOfDirective)

	for _, def := range doc.Definitions {
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		if t != nil {
			s.AddType(t)
		}
	}
	for _, def := range doc.Directives {
		s.AddDirective(buildDirectiveDefinition(def))
	}

	for _, def := range doc.Schema {
		for _, op := range def.OperationTypes {
			switch op.Operation {
			case ast.Query:
				s.SetQueryType(op.Type)
			case ast.Mutation:
				s.SetMutationType(op.Type)
			case ast.Subscription:
				s.SetSubscriptionType(op.Type)
			}
		}
	}
	// Without an explicit schema declaration the conventional root type
	// names apply.
	if len(doc.Schema) == 0 {
		s.SetQueryType("Query")
		if s.Types["Mutation"] != nil {
			s.SetMutationType("Mutation")
		}
		if s.Types["Subscription"] != nil {
			s.SetSubscriptionType("Subscription")
		}
	}

	// Interfaces list their implementors as possible types.
	for _, t := range s.Types {
		if t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			if it := s.Types[iface]; it != nil && it.Kind == TypeKindInterface {
				it.AddPossibleType(t.Name)
			}
		}
	}
	return s, nil
}

func buildDefinition(def *ast.Definition) (*Type, error) {
	var kind TypeKind
	switch def.Kind {
	case ast.Object:
		kind = TypeKindObject
	case ast.Interface:
		kind = TypeKindInterface
	case ast.Union:
		kind = TypeKindUnion
	case ast.Scalar:
		kind = TypeKindScalar
	case ast.Enum:
		kind = TypeKindEnum
	case ast.InputObject:
		kind = TypeKindInputObject
	default:
		return nil, fmt.Errorf("unsupported definition kind %q for %s", def.Kind, def.Name)
	}

	t := NewType(def.Name, kind, def.Description)
	t.DirectiveUses = buildDirectiveUses(def.Directives)
	for _, iface := range def.Interfaces {
		t.AddInterface(iface)
	}
	for _, name := range def.Types {
		t.AddPossibleType(name)
	}
	for _, fd := range def.Fields {
		if kind == TypeKindInputObject {
			t.AddInputField(buildInputValueDefinition(fd))
			continue
		}
		f := NewField(fd.Name, fd.Description, typeRefFromAST(fd.Type))
		f.DirectiveUses = buildDirectiveUses(fd.Directives)
		for _, arg := range fd.Arguments {
			in := NewInputValue(arg.Name, arg.Description, typeRefFromAST(arg.Type))
			if arg.DefaultValue != nil {
				in.SetDefault(astValueToGo(arg.DefaultValue))
			}
			f.AddArgument(in)
		}
		if d := fd.Directives.ForName("deprecated"); d != nil {
			f.Deprecate(directiveReason(d))
		}
		t.AddField(f)
	}
	for _, ev := range def.EnumValues {
		v := NewEnumValue(ev.Name, ev.Description)
		if d := ev.Directives.ForName("deprecated"); d != nil {
			v.Deprecate(directiveReason(d))
		}
		t.AddEnumValue(v)
	}
	return t, nil
}

func buildInputValueDefinition(fd *ast.FieldDefinition) *InputValue {
	in := NewInputValue(fd.Name, fd.Description, typeRefFromAST(fd.Type))
	if fd.DefaultValue != nil {
		in.SetDefault(astValueToGo(fd.DefaultValue))
	}
	return in
}

func buildDirectiveDefinition(def *ast.DirectiveDefinition) *Directive {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	for _, loc := range def.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range def.Arguments {
		in := NewInputValue(arg.Name, arg.Description, typeRefFromAST(arg.Type))
		if arg.DefaultValue != nil {
			in.SetDefault(astValueToGo(arg.DefaultValue))
		}
		d.AddArgument(in)
	}
	return d
}

func buildDirectiveUses(list ast.DirectiveList) []*DirectiveUse {
	if len(list) == 0 {
		return nil
	}
	out := make([]*DirectiveUse, 0, len(list))
	for _, d := range list {
		use := &DirectiveUse{Name: d.Name, Args: map[string]any{}}
		for _, arg := range d.Arguments {
			use.Args[arg.Name] = astValueToGo(arg.Value)
		}
		out = append(out, use)
	}
	return out
}

func directiveReason(d *ast.Directive) string {
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return ""
}

func typeRefFromAST(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(typeRefFromAST(&ast.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	return ListType(typeRefFromAST(t.Elem))
}

// astValueToGo converts a constant AST value into a plain Go value.
// Variables never appear in schema positions.
func astValueToGo(v *ast.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ast.IntValue:
		iv, _ := strconv.Atoi(v.Raw)
		return iv
	case ast.FloatValue:
		fv, _ := strconv.ParseFloat(v.Raw, 64)
		return fv
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw
	case ast.BooleanValue:
		return v.Raw == "true"
	case ast.NullValue:
		return nil
	case ast.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = astValueToGo(c.Value)
		}
		return out
	case ast.ObjectValue:
		m := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			m[c.Name] = astValueToGo(c.Value)
		}
		return m
	default:
		return nil
	}
}
