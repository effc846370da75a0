package rewrite

import (
	"github.com/KorAP/Koral-Rewriter/ast"
)

// Outcome is the result of a transform: either unchanged, or a replacement
// node to be spliced in place of the original
type Outcome struct {
	Node    ast.Node
	Changed bool
}

// Unchanged leaves the original node in place
func Unchanged() Outcome {
	return Outcome{}
}

// Replaced proposes node as the replacement
func Replaced(node ast.Node) Outcome {
	return Outcome{Node: node, Changed: true}
}
