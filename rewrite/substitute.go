package rewrite

import (
	"github.com/KorAP/Koral-Rewriter/ast"
)

// ConstantMap maps literal values to constant names of one target class.
// Keys are expected in ast.Scalar.Key form. Transforms only read it.
type ConstantMap map[ast.Scalar]string

// SubstituteAtPosition replaces a string or integer literal argument at
// position with a reference to the mapped constant of className:
//
//	new Response('', 200)  ->  new Response('', Response::HTTP_OK)
//
// It works on any call-like node and never consults type information.
// The input is not mutated; the replacement is a modified deep clone.
func SubstituteAtPosition(call ast.CallLike, position int, className string, constants ConstantMap) (Outcome, error) {
	if c, ok := call.(*ast.Call); call == nil || (ok && c == nil) {
		return Unchanged(), Malformed(nil, "nil call")
	}
	if className == "" {
		return Unchanged(), Malformed(call, "empty target class")
	}

	args := call.Arguments()
	if position < 0 || position >= len(args) {
		return Unchanged(), nil
	}
	arg := args[position]
	if arg == nil || arg.Value == nil {
		return Unchanged(), Malformed(call, "argument %d has no value", position)
	}

	literal, ok := arg.Value.(*ast.Literal)
	if !ok {
		return Unchanged(), nil
	}
	constant, ok := constants[literal.Value.Key()]
	if !ok {
		return Unchanged(), nil
	}

	replacement, ok := call.Clone().(ast.CallLike)
	if !ok {
		return Unchanged(), Malformed(call, "clone is not call-like")
	}
	replaced := arg.Clone()
	replaced.Value = &ast.ConstFetch{
		Class:      className,
		Name:       constant,
		Attributes: literal.Attributes.Clone(),
	}
	replacement.SetArgument(position, replaced)
	return Replaced(replacement), nil
}
