package rewrite

import (
	"errors"
	"testing"

	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var callAttrs = ast.Attributes{"startLine": float64(7), "startFilePos": float64(120)}

func str(s string) *ast.Literal {
	return &ast.Literal{Value: ast.StringValue(s)}
}

func items(values ...ast.Node) *ast.Collection {
	c := &ast.Collection{}
	for _, v := range values {
		c.Items = append(c.Items, &ast.Item{Value: v})
	}
	return c
}

func check(args ...ast.Node) *ast.Call {
	call := &ast.Call{
		Kind:       ast.MethodCall,
		Var:        &ast.Variable{Name: "checker"},
		Name:       &ast.Identifier{Name: "isGranted"},
		Attributes: callAttrs.Clone(),
	}
	for _, a := range args {
		call.Args = append(call.Args, &ast.Arg{Value: a})
	}
	return call
}

func or(left, right ast.Node) *ast.LogicalOr {
	return &ast.LogicalOr{Left: left, Right: right}
}

func TestExpandCollectionArgument(t *testing.T) {
	tests := []struct {
		name     string
		input    *ast.Call
		position int
		expected ast.Node // nil means unchanged
	}{
		{
			name:     "Two elements become one disjunction",
			input:    check(items(str("A"), str("B"))),
			expected: or(check(str("A")), check(str("B"))),
		},
		{
			name:     "Single element collapses to a plain call",
			input:    check(items(str("A"))),
			expected: check(str("A")),
		},
		{
			name:  "Empty collection is unchanged",
			input: check(items()),
		},
		{
			name:     "Three elements fold to the left",
			input:    check(items(str("A"), str("B"), str("C"))),
			expected: or(or(check(str("A")), check(str("B"))), check(str("C"))),
		},
		{
			name: "Keyed elements are discarded",
			input: check(&ast.Collection{Items: []*ast.Item{
				{Key: str("first"), Value: str("X")},
				{Value: str("A")},
				nil,
				{Value: str("B")},
			}}),
			expected: or(check(str("A")), check(str("B"))),
		},
		{
			name: "Only keyed elements behave as empty",
			input: check(&ast.Collection{Items: []*ast.Item{
				{Key: str("first"), Value: str("X")},
			}}),
		},
		{
			name: "Unpacked element leaves the call unchanged",
			input: check(&ast.Collection{Items: []*ast.Item{
				{Value: str("A")},
				{Value: &ast.Variable{Name: "roles"}, Unpack: true},
			}}),
		},
		{
			name:  "Scalar argument is unchanged",
			input: check(str("A")),
		},
		{
			name:     "Missing argument is unchanged",
			input:    check(),
			position: 0,
		},
		{
			name:     "Other arguments are kept on every leaf",
			input:    check(str("subject"), items(str("A"), str("B"))),
			position: 1,
			expected: or(check(str("subject"), str("A")), check(str("subject"), str("B"))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.input.Clone()

			outcome, err := ExpandCollectionArgument(tt.input, tt.position)
			require.NoError(t, err)

			if tt.expected == nil {
				assert.False(t, outcome.Changed)
				assert.Nil(t, outcome.Node)
			} else {
				require.True(t, outcome.Changed)
				assert.True(t, ast.NodesEqual(tt.expected, outcome.Node), "got %#v", outcome.Node)
			}

			// The input is never mutated
			assert.True(t, ast.NodesEqual(before, tt.input))
		})
	}
}

func TestExpandLeafCountAndOrder(t *testing.T) {
	for n := 2; n <= 8; n++ {
		values := make([]ast.Node, n)
		for i := range values {
			values[i] = &ast.Literal{Value: ast.IntValue(int64(i))}
		}

		outcome, err := ExpandCollectionArgument(check(items(values...)), 0)
		require.NoError(t, err)
		require.True(t, outcome.Changed)

		// Walk the left spine: rightmost leaf is the last element
		var leaves []*ast.Call
		node := outcome.Node
		for {
			orNode, ok := node.(*ast.LogicalOr)
			if !ok {
				leaves = append([]*ast.Call{node.(*ast.Call)}, leaves...)
				break
			}
			_, rightIsOr := orNode.Right.(*ast.LogicalOr)
			assert.False(t, rightIsOr, "chain must be left-associative")
			leaves = append([]*ast.Call{orNode.Right.(*ast.Call)}, leaves...)
			node = orNode.Left
		}

		require.Len(t, leaves, n)
		for i, leaf := range leaves {
			assert.Equal(t, ast.IntValue(int64(i)), leaf.Args[0].Value.(*ast.Literal).Value)
			assert.Equal(t, callAttrs, leaf.Attributes)
			assert.Equal(t, "isGranted", leaf.Name.(*ast.Identifier).Name)
		}
	}
}

func TestExpandLeavesDoNotShareState(t *testing.T) {
	outcome, err := ExpandCollectionArgument(check(items(str("A"), str("B"))), 0)
	require.NoError(t, err)

	chain := outcome.Node.(*ast.LogicalOr)
	left := chain.Left.(*ast.Call)
	right := chain.Right.(*ast.Call)

	assert.NotSame(t, left.Var, right.Var)
	assert.NotSame(t, left.Args[0], right.Args[0])
	left.Attributes["startLine"] = float64(1)
	assert.Equal(t, float64(7), right.Attributes["startLine"])
}

func TestExpandIsIdempotentOnSingleElement(t *testing.T) {
	first, err := ExpandCollectionArgument(check(items(str("A"))), 0)
	require.NoError(t, err)
	require.True(t, first.Changed)

	second, err := ExpandCollectionArgument(first.Node.(*ast.Call), 0)
	require.NoError(t, err)
	assert.False(t, second.Changed)
}

func TestExpandMalformedInput(t *testing.T) {
	broken := check(items(str("A")))
	broken.Args = append(broken.Args, nil)

	tests := []struct {
		name     string
		call     *ast.Call
		position int
	}{
		{"Nil call", nil, 0},
		{"Negative position", check(items(str("A"))), -1},
		{"Nil argument", broken, 0},
		{"Item without value", check(&ast.Collection{Items: []*ast.Item{{}}}), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := ExpandCollectionArgument(tt.call, tt.position)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedInput))
			assert.False(t, outcome.Changed)
		})
	}
}

func TestMalformedInputErrorPosition(t *testing.T) {
	_, err := ExpandCollectionArgument(check(items(str("A"))), -1)
	require.Error(t, err)

	var malformed *MalformedInputError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, ast.CallNode, malformed.NodeType)
	assert.Contains(t, err.Error(), "line 7 (offset 120)")
	assert.Contains(t, err.Error(), "invalid argument position -1")
}
