package rewrite

import (
	"github.com/KorAP/Koral-Rewriter/ast"
)

// ExpandCollectionArgument turns a call taking a collection literal at
// position into a left-associative chain of calls joined by logical OR,
// one call per positional element, in element order:
//
//	check(["A", "B", "C"])  ->  (check("A") || check("B")) || check("C")
//
// A single element collapses to a plain call. Empty collections, collections
// with only keyed elements and collections containing unpacked elements are
// left unchanged. The input call is never mutated.
func ExpandCollectionArgument(call *ast.Call, position int) (Outcome, error) {
	if call == nil {
		return Unchanged(), Malformed(nil, "nil call")
	}
	if position < 0 {
		return Unchanged(), Malformed(call, "invalid argument position %d", position)
	}
	for i, a := range call.Args {
		if a == nil || a.Value == nil {
			return Unchanged(), Malformed(call, "argument %d has no value", i)
		}
	}
	if position >= len(call.Args) {
		return Unchanged(), nil
	}

	arg := call.Args[position]
	if arg.Unpack {
		return Unchanged(), nil
	}
	collection, ok := arg.Value.(*ast.Collection)
	if !ok {
		return Unchanged(), nil
	}

	elements, err := positionalElements(collection)
	if err != nil || len(elements) == 0 {
		return Unchanged(), err
	}

	// Template without the collection, so each leaf clones only what it keeps
	template := &ast.Call{
		Kind:       call.Kind,
		Var:        call.Var,
		Class:      call.Class,
		Name:       call.Name,
		Args:       make([]*ast.Arg, len(call.Args)),
		Attributes: call.Attributes,
	}
	copy(template.Args, call.Args)
	template.Args[position] = nil

	leaf := func(element ast.Node) ast.Node {
		c := template.Clone().(*ast.Call)
		c.Args[position] = &ast.Arg{
			Value:      element.Clone(),
			Attributes: arg.Attributes.Clone(),
		}
		return c
	}

	var chain ast.Node = leaf(elements[0])
	for _, element := range elements[1:] {
		chain = &ast.LogicalOr{Left: chain, Right: leaf(element)}
	}
	return Replaced(chain), nil
}

// positionalElements collects the values of unkeyed collection items in
// order. Holes are skipped. An unpacked item makes the element count
// unknown, which yields no elements.
func positionalElements(collection *ast.Collection) ([]ast.Node, error) {
	elements := make([]ast.Node, 0, len(collection.Items))
	for i, item := range collection.Items {
		if item == nil {
			continue
		}
		if item.Value == nil {
			return nil, Malformed(collection, "collection item %d has no value", i)
		}
		if item.Unpack {
			return nil, nil
		}
		if item.Key != nil {
			continue
		}
		elements = append(elements, item.Value)
	}
	return elements, nil
}
