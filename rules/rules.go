package rules

import (
	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/rewrite"
)

// Rule proposes a replacement for nodes of the types it declares.
// Rules are stateless; each call to Refactor sees one candidate node.
type Rule interface {
	ID() string
	NodeTypes() []ast.NodeType
	Refactor(node ast.Node) (rewrite.Outcome, error)
}

// Applies reports whether rule declares interest in the type of node
func Applies(rule Rule, node ast.Node) bool {
	for _, t := range rule.NodeTypes() {
		if node.Type() == t {
			return true
		}
	}
	return false
}
