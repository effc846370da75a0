package ast

import (
	"reflect"
)

// NodesEqual compares two AST nodes for equality, attributes included
func NodesEqual(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.Type() != b.Type() {
		return false
	}

	if !attributesEqual(a.Attrs(), b.Attrs()) {
		return false
	}

	switch n1 := a.(type) {
	case *Call:
		if n2, ok := b.(*Call); ok {
			if n1.Kind != n2.Kind ||
				n1.Class != n2.Class ||
				!NodesEqual(n1.Var, n2.Var) ||
				!NodesEqual(n1.Name, n2.Name) ||
				len(n1.Args) != len(n2.Args) {
				return false
			}
			for i := range n1.Args {
				if !argsEqual(n1.Args[i], n2.Args[i]) {
					return false
				}
			}
			return true
		}
	case *Literal:
		if n2, ok := b.(*Literal); ok {
			return n1.Value == n2.Value
		}
	case *Collection:
		if n2, ok := b.(*Collection); ok {
			if len(n1.Items) != len(n2.Items) {
				return false
			}
			for i := range n1.Items {
				if !itemsEqual(n1.Items[i], n2.Items[i]) {
					return false
				}
			}
			return true
		}
	case *LogicalOr:
		if n2, ok := b.(*LogicalOr); ok {
			return NodesEqual(n1.Left, n2.Left) && NodesEqual(n1.Right, n2.Right)
		}
	case *ConstFetch:
		if n2, ok := b.(*ConstFetch); ok {
			return n1.Class == n2.Class && n1.Name == n2.Name
		}
	case *Identifier:
		if n2, ok := b.(*Identifier); ok {
			return n1.Name == n2.Name
		}
	case *Variable:
		if n2, ok := b.(*Variable); ok {
			return n1.Name == n2.Name
		}
	case *PropertyFetch:
		if n2, ok := b.(*PropertyFetch); ok {
			return NodesEqual(n1.Var, n2.Var) && NodesEqual(n1.Name, n2.Name)
		}
	case *CatchallNode:
		if n2, ok := b.(*CatchallNode); ok {
			if n1.NodeType != n2.NodeType ||
				!reflect.DeepEqual(normalizeFields(n1.Fields), normalizeFields(n2.Fields)) ||
				len(n1.Slots) != len(n2.Slots) {
				return false
			}
			for i := range n1.Slots {
				s1, s2 := n1.Slots[i], n2.Slots[i]
				if s1.Name != s2.Name || s1.List != s2.List || len(s1.Nodes) != len(s2.Nodes) {
					return false
				}
				for j := range s1.Nodes {
					if !NodesEqual(s1.Nodes[j], s2.Nodes[j]) {
						return false
					}
				}
			}
			return true
		}
	}
	return false
}

// argsEqual compares two call arguments for equality
func argsEqual(a, b *Arg) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name == b.Name &&
		a.Unpack == b.Unpack &&
		attributesEqual(a.Attributes, b.Attributes) &&
		NodesEqual(a.Value, b.Value)
}

// itemsEqual compares two collection items for equality
func itemsEqual(a, b *Item) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Unpack == b.Unpack &&
		attributesEqual(a.Attributes, b.Attributes) &&
		NodesEqual(a.Key, b.Key) &&
		NodesEqual(a.Value, b.Value)
}

// attributesEqual treats nil and empty attribute maps as equal
func attributesEqual(a, b Attributes) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func normalizeFields(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
