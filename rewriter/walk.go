package rewriter

import (
	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/rules"
)

// pass runs a single rule over a tree it owns.
//
// The walk is post-order: children are rewritten before their parent is
// offered to the rule, and a replacement is spliced into the parent's slot
// without being descended into again. A nested call inside a collection is
// therefore expanded before the call holding that collection, and the
// disjunction produced for a call is never re-examined in the same pass.
type pass struct {
	rule    rules.Rule
	applied int
}

func (p *pass) walk(node ast.Node) (ast.Node, error) {
	if node == nil {
		return nil, nil
	}

	var err error
	switch n := node.(type) {
	case *ast.Call:
		if n.Var, err = p.walk(n.Var); err != nil {
			return nil, err
		}
		if n.Name, err = p.walk(n.Name); err != nil {
			return nil, err
		}
		for _, arg := range n.Args {
			if arg == nil {
				continue
			}
			if arg.Value, err = p.walk(arg.Value); err != nil {
				return nil, err
			}
		}
	case *ast.Collection:
		for _, item := range n.Items {
			if item == nil {
				continue
			}
			if item.Key, err = p.walk(item.Key); err != nil {
				return nil, err
			}
			if item.Value, err = p.walk(item.Value); err != nil {
				return nil, err
			}
		}
	case *ast.LogicalOr:
		if n.Left, err = p.walk(n.Left); err != nil {
			return nil, err
		}
		if n.Right, err = p.walk(n.Right); err != nil {
			return nil, err
		}
	case *ast.PropertyFetch:
		if n.Var, err = p.walk(n.Var); err != nil {
			return nil, err
		}
		if n.Name, err = p.walk(n.Name); err != nil {
			return nil, err
		}
	case *ast.CatchallNode:
		for i := range n.Slots {
			for j, child := range n.Slots[i].Nodes {
				if n.Slots[i].Nodes[j], err = p.walk(child); err != nil {
					return nil, err
				}
			}
		}
	}

	if !rules.Applies(p.rule, node) {
		return node, nil
	}
	outcome, err := p.rule.Refactor(node)
	if err != nil {
		return nil, err
	}
	if !outcome.Changed {
		return node, nil
	}
	p.applied++
	return outcome.Node, nil
}
