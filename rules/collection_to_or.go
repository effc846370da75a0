package rules

import (
	"fmt"

	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/matcher"
	"github.com/KorAP/Koral-Rewriter/rewrite"
	"github.com/KorAP/Koral-Rewriter/types"
)

// CollectionToOrRule splits a call taking a collection literal into a
// disjunction of single-element calls, e.g.
//
//	$checker->isGranted(['ROLE_USER', 'ROLE_ADMIN'])
//
// becomes
//
//	$checker->isGranted('ROLE_USER') || $checker->isGranted('ROLE_ADMIN')
type CollectionToOrRule struct {
	id      string
	matcher *matcher.CallMatcher
	oracle  types.Oracle
}

// NewCollectionToOrRule creates a rule for method calls of member on
// receivers satisfying capability, expanding the argument at position
func NewCollectionToOrRule(id, capability, member string, position int, oracle types.Oracle) (*CollectionToOrRule, error) {
	if oracle == nil {
		return nil, fmt.Errorf("rule %s: no type oracle", id)
	}
	m, err := matcher.NewCallMatcher(capability, member, position)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", id, err)
	}
	return &CollectionToOrRule{id: id, matcher: m, oracle: oracle}, nil
}

func (r *CollectionToOrRule) ID() string {
	return r.id
}

func (r *CollectionToOrRule) NodeTypes() []ast.NodeType {
	return []ast.NodeType{ast.CallNode}
}

func (r *CollectionToOrRule) Refactor(node ast.Node) (rewrite.Outcome, error) {
	call, ok := node.(*ast.Call)
	if !ok || call.Kind != ast.MethodCall {
		return rewrite.Unchanged(), nil
	}

	result, err := r.matcher.Match(call, r.oracle)
	if err != nil || !result.Matched {
		return rewrite.Unchanged(), err
	}
	return rewrite.ExpandCollectionArgument(call, r.matcher.Position)
}
