package rewrite

import (
	"errors"
	"fmt"

	"github.com/KorAP/Koral-Rewriter/ast"
)

// ErrMalformedInput marks a structural invariant violation in the input tree.
// It aborts a single transform invocation; the tree is left untouched.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError carries the source location of the offending node
type MalformedInputError struct {
	NodeType   ast.NodeType
	Attributes ast.Attributes
	Detail     string
}

func (e *MalformedInputError) Error() string {
	if e.NodeType == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedInput, e.Detail)
	}
	return fmt.Sprintf("%s: %s at %s (%s)", ErrMalformedInput, e.Detail, e.Attributes.Position(), e.NodeType)
}

func (e *MalformedInputError) Unwrap() error {
	return ErrMalformedInput
}

// Malformed creates a MalformedInputError for node, which may be nil
func Malformed(node ast.Node, format string, args ...any) error {
	e := &MalformedInputError{Detail: fmt.Sprintf(format, args...)}
	if node != nil {
		e.NodeType = node.Type()
		e.Attributes = node.Attrs().Clone()
	}
	return e
}
