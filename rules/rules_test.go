package rules

import (
	"errors"
	"testing"

	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/oracle"
	"github.com/KorAP/Koral-Rewriter/parser"
	"github.com/KorAP/Koral-Rewriter/rewrite"
	"github.com/KorAP/Koral-Rewriter/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkerInterface = `Symfony\Component\Security\Core\Authorization\AuthorizationCheckerInterface`

func newOracle(t *testing.T) types.Oracle {
	t.Helper()
	h := types.NewHierarchy()
	require.NoError(t, h.Declare(`App\Checker`, checkerInterface))
	o, err := oracle.NewAnnotationOracle(h)
	require.NoError(t, err)
	return o
}

func lit(s string) *ast.Literal {
	return &ast.Literal{Value: ast.StringValue(s)}
}

func isGranted(receiverType string, args ...*ast.Arg) *ast.Call {
	return &ast.Call{
		Kind: ast.MethodCall,
		Var: &ast.Variable{
			Name:       "checker",
			Attributes: ast.Attributes{oracle.TypeAttribute: receiverType},
		},
		Name: &ast.Identifier{Name: "isGranted"},
		Args: args,
	}
}

func roleList(names ...string) *ast.Arg {
	c := &ast.Collection{}
	for _, n := range names {
		c.Items = append(c.Items, &ast.Item{Value: lit(n)})
	}
	return &ast.Arg{Value: c}
}

func TestCollectionToOrRule(t *testing.T) {
	rule, err := NewCollectionToOrRule("is-granted", checkerInterface, "isGranted", 0, newOracle(t))
	require.NoError(t, err)
	assert.Equal(t, "is-granted", rule.ID())
	assert.Equal(t, []ast.NodeType{ast.CallNode}, rule.NodeTypes())

	tests := []struct {
		name     string
		node     ast.Node
		expected ast.Node // nil means unchanged
	}{
		{
			name: "Two roles",
			node: isGranted(`App\Checker`, roleList("A", "B")),
			expected: &ast.LogicalOr{
				Left:  isGranted(`App\Checker`, &ast.Arg{Value: lit("A")}),
				Right: isGranted(`App\Checker`, &ast.Arg{Value: lit("B")}),
			},
		},
		{
			name:     "One role",
			node:     isGranted(`App\Checker`, roleList("A")),
			expected: isGranted(`App\Checker`, &ast.Arg{Value: lit("A")}),
		},
		{
			name: "No roles",
			node: isGranted(`App\Checker`, roleList()),
		},
		{
			name: "Named argument",
			node: isGranted(`App\Checker`, &ast.Arg{Name: "role", Value: roleList("A", "B").Value}),
		},
		{
			name: "Receiver of another type",
			node: isGranted(`App\Other`, roleList("A", "B")),
		},
		{
			name: "Receiver without annotation",
			node: isGranted("", roleList("A", "B")),
		},
		{
			name: "Not a call",
			node: lit("A"),
		},
		{
			name: "Static call",
			node: &ast.Call{Kind: ast.StaticCall, Class: `App\Checker`, Name: &ast.Identifier{Name: "isGranted"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := rule.Refactor(tt.node)
			require.NoError(t, err)
			if tt.expected == nil {
				assert.False(t, outcome.Changed)
				return
			}
			require.True(t, outcome.Changed)
			assert.True(t, ast.NodesEqual(tt.expected, outcome.Node), "got %#v", outcome.Node)
		})
	}
}

func TestCollectionToOrRuleMalformed(t *testing.T) {
	rule, err := NewCollectionToOrRule("is-granted", checkerInterface, "isGranted", 0, newOracle(t))
	require.NoError(t, err)

	call := isGranted(`App\Checker`, roleList("A"))
	call.Var = nil
	_, err = rule.Refactor(call)
	assert.True(t, errors.Is(err, rewrite.ErrMalformedInput))
}

func TestNewCollectionToOrRuleErrors(t *testing.T) {
	_, err := NewCollectionToOrRule("x", checkerInterface, "isGranted", 0, nil)
	assert.Error(t, err)
	_, err = NewCollectionToOrRule("x", "", "isGranted", 0, newOracle(t))
	assert.Error(t, err)
}

func TestConstantRule(t *testing.T) {
	constants := rewrite.ConstantMap{ast.IntValue(5): "FIVE"}

	factory := func(kind ast.CallKind, class string, value ast.Node) *ast.Call {
		call := &ast.Call{Kind: kind, Class: class, Args: []*ast.Arg{{Value: value}}}
		if kind != ast.NewCall {
			call.Name = &ast.Identifier{Name: "make"}
		}
		if kind == ast.MethodCall {
			call.Var = &ast.Variable{Name: "f", Attributes: ast.Attributes{oracle.TypeAttribute: class}}
			call.Class = ""
		}
		return call
	}
	five := func() ast.Node { return &ast.Literal{Value: ast.IntValue(5)} }
	fetch := func() ast.Node { return &ast.ConstFetch{Class: "T", Name: "FIVE"} }

	tests := []struct {
		name     string
		target   parser.Target
		node     *ast.Call
		expected ast.Node
	}{
		{
			name:     "Constructor",
			target:   parser.Target{Kind: ast.NewCall, Class: "T"},
			node:     factory(ast.NewCall, "T", five()),
			expected: factory(ast.NewCall, "T", fetch()),
		},
		{
			name:     "Constructor class is case-insensitive",
			target:   parser.Target{Kind: ast.NewCall, Class: "T"},
			node:     factory(ast.NewCall, `\t`, five()),
			expected: factory(ast.NewCall, `\t`, fetch()),
		},
		{
			name:   "Constructor of other class",
			target: parser.Target{Kind: ast.NewCall, Class: "T"},
			node:   factory(ast.NewCall, "U", five()),
		},
		{
			name:     "Static call",
			target:   parser.Target{Kind: ast.StaticCall, Class: "T", Member: "make"},
			node:     factory(ast.StaticCall, "T", five()),
			expected: factory(ast.StaticCall, "T", fetch()),
		},
		{
			name:   "Static call of other member",
			target: parser.Target{Kind: ast.StaticCall, Class: "T", Member: "build"},
			node:   factory(ast.StaticCall, "T", five()),
		},
		{
			name:     "Method call through the oracle",
			target:   parser.Target{Kind: ast.MethodCall, Class: checkerInterface, Member: "make"},
			node:     factory(ast.MethodCall, `App\Checker`, five()),
			expected: factory(ast.MethodCall, `App\Checker`, fetch()),
		},
		{
			name:   "Method call on unknown receiver",
			target: parser.Target{Kind: ast.MethodCall, Class: checkerInterface, Member: "make"},
			node:   factory(ast.MethodCall, "", five()),
		},
		{
			name:   "Unmapped literal",
			target: parser.Target{Kind: ast.NewCall, Class: "T"},
			node:   factory(ast.NewCall, "T", &ast.Literal{Value: ast.IntValue(7)}),
		},
		{
			name:   "Kind mismatch",
			target: parser.Target{Kind: ast.NewCall, Class: "T"},
			node:   factory(ast.StaticCall, "T", five()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewConstantRule("make-five", tt.target, "T", constants, newOracle(t))
			require.NoError(t, err)

			outcome, err := rule.Refactor(tt.node)
			require.NoError(t, err)
			if tt.expected == nil {
				assert.False(t, outcome.Changed)
				return
			}
			require.True(t, outcome.Changed)
			assert.True(t, ast.NodesEqual(tt.expected, outcome.Node), "got %#v", outcome.Node)
		})
	}
}

func TestConstantRuleNamedArgument(t *testing.T) {
	rule, err := NewConstantRule("x", parser.Target{Kind: ast.NewCall, Class: "T"}, "T",
		rewrite.ConstantMap{ast.IntValue(5): "FIVE"}, nil)
	require.NoError(t, err)

	call := &ast.Call{Kind: ast.NewCall, Class: "T", Args: []*ast.Arg{
		{Name: "status", Value: &ast.Literal{Value: ast.IntValue(5)}},
	}}
	outcome, err := rule.Refactor(call)
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
}

func TestConstantRuleCopiesMap(t *testing.T) {
	constants := rewrite.ConstantMap{ast.IntValue(5): "FIVE"}
	rule, err := NewConstantRule("x", parser.Target{Kind: ast.NewCall, Class: "T"}, "T", constants, nil)
	require.NoError(t, err)

	delete(constants, ast.IntValue(5))

	outcome, err := rule.Refactor(&ast.Call{Kind: ast.NewCall, Class: "T", Args: []*ast.Arg{
		{Value: &ast.Literal{Value: ast.IntValue(5)}},
	}})
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
}

func TestConstantRuleNumericStringKey(t *testing.T) {
	constants := rewrite.ConstantMap{ast.StringValue("404"): "HTTP_NOT_FOUND"}
	rule, err := NewConstantRule("x", parser.Target{Kind: ast.NewCall, Class: "T", Position: 1}, "T", constants, nil)
	require.NoError(t, err)

	outcome, err := rule.Refactor(&ast.Call{Kind: ast.NewCall, Class: "T", Args: []*ast.Arg{
		{Value: &ast.Literal{Value: ast.StringValue("")}},
		{Value: &ast.Literal{Value: ast.IntValue(404)}},
	}})
	require.NoError(t, err)
	require.True(t, outcome.Changed)

	fetch := outcome.Node.(*ast.Call).Args[1].Value.(*ast.ConstFetch)
	assert.Equal(t, "HTTP_NOT_FOUND", fetch.Name)
}

func TestNewConstantRuleErrors(t *testing.T) {
	constants := rewrite.ConstantMap{ast.IntValue(5): "FIVE"}

	_, err := NewConstantRule("x", parser.Target{Kind: ast.NewCall, Class: "T"}, "", constants, nil)
	assert.Error(t, err)
	_, err = NewConstantRule("x", parser.Target{Kind: ast.NewCall, Class: "T"}, "T", nil, nil)
	assert.Error(t, err)
	_, err = NewConstantRule("x", parser.Target{Kind: ast.NewCall}, "T", constants, nil)
	assert.Error(t, err)
	_, err = NewConstantRule("x", parser.Target{Kind: ast.MethodCall, Class: "C", Member: "m"}, "T", constants, nil)
	assert.Error(t, err)
	_, err = NewConstantRule("x", parser.Target{Kind: ast.FunctionCall}, "T", constants, nil)
	assert.Error(t, err)
}

func TestApplies(t *testing.T) {
	rule, err := NewCollectionToOrRule("is-granted", checkerInterface, "isGranted", 0, newOracle(t))
	require.NoError(t, err)
	assert.True(t, Applies(rule, isGranted(`App\Checker`)))
	assert.False(t, Applies(rule, lit("A")))
}
