package language

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses an executable GraphQL document (operations and fragments).
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseFragments parses a document that contains only fragment definitions,
// as used by resolver and checker declarations. The returned list preserves
// source order.
func ParseFragments(source string) ([]*FragmentDefinition, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	if len(doc.Operations) > 0 {
		return nil, fmt.Errorf("expected fragment definitions only, found an operation")
	}
	if len(doc.Fragments) == 0 {
		return nil, fmt.Errorf("no fragment definitions found")
	}
	out := make([]*FragmentDefinition, len(doc.Fragments))
	copy(out, doc.Fragments)
	return out, nil
}

// ParseSelectionSet parses a braced selection set body such as "{ id name }".
func ParseSelectionSet(onType, source string) (SelectionSet, error) {
	frags, err := ParseFragments("fragment _ on " + onType + " " + source)
	if err != nil {
		return nil, err
	}
	return frags[0].SelectionSet, nil
}
