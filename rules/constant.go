package rules

import (
	"fmt"

	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/matcher"
	"github.com/KorAP/Koral-Rewriter/parser"
	"github.com/KorAP/Koral-Rewriter/rewrite"
	"github.com/KorAP/Koral-Rewriter/types"
)

// ConstantRule replaces a literal argument with a class constant reference.
// Method targets are matched by receiver capability through the oracle,
// static and constructor targets by class name alone.
type ConstantRule struct {
	id        string
	target    parser.Target
	class     string
	constants rewrite.ConstantMap
	matcher   *matcher.CallMatcher
	oracle    types.Oracle
}

// NewConstantRule creates a rule substituting the argument selected by
// target with constants of class
func NewConstantRule(id string, target parser.Target, class string, constants rewrite.ConstantMap, oracle types.Oracle) (*ConstantRule, error) {
	if class == "" {
		return nil, fmt.Errorf("rule %s: no constant class", id)
	}
	if len(constants) == 0 {
		return nil, fmt.Errorf("rule %s: no constants", id)
	}

	r := &ConstantRule{
		id:        id,
		target:    target,
		class:     class,
		constants: make(rewrite.ConstantMap, len(constants)),
	}
	for k, v := range constants {
		r.constants[k.Key()] = v
	}

	switch target.Kind {
	case ast.MethodCall:
		if oracle == nil {
			return nil, fmt.Errorf("rule %s: no type oracle", id)
		}
		m, err := matcher.NewCallMatcher(target.Class, target.Member, target.Position)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", id, err)
		}
		r.matcher = m
		r.oracle = oracle
	case ast.StaticCall, ast.NewCall:
		if target.Class == "" {
			return nil, fmt.Errorf("rule %s: target without class", id)
		}
	default:
		return nil, fmt.Errorf("rule %s: unsupported target kind %q", id, target.Kind)
	}
	return r, nil
}

func (r *ConstantRule) ID() string {
	return r.id
}

func (r *ConstantRule) NodeTypes() []ast.NodeType {
	return []ast.NodeType{ast.CallNode}
}

func (r *ConstantRule) Refactor(node ast.Node) (rewrite.Outcome, error) {
	call, ok := node.(*ast.Call)
	if !ok || call.Kind != r.target.Kind {
		return rewrite.Unchanged(), nil
	}

	if r.matcher != nil {
		result, err := r.matcher.Match(call, r.oracle)
		if err != nil || !result.Matched {
			return rewrite.Unchanged(), err
		}
	} else if !r.matchesClass(call) {
		return rewrite.Unchanged(), nil
	}

	return rewrite.SubstituteAtPosition(call, r.target.Position, r.class, r.constants)
}

// matchesClass checks static and constructor calls by class and member name.
// Named arguments make positions unreliable.
func (r *ConstantRule) matchesClass(call *ast.Call) bool {
	if types.NormalizeName(call.Class) != types.NormalizeName(r.target.Class) {
		return false
	}
	if matcher.HasNamedArg(call.Args) {
		return false
	}
	if r.target.Kind == ast.NewCall {
		return true
	}
	name, ok := call.MemberName()
	return ok && name == r.target.Member
}
