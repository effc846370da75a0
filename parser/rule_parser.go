package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// RuleParser parses the compact rule notation used in configuration files
type RuleParser struct {
	targetParser   *participle.Parser[TargetGrammar]
	constantParser *participle.Parser[ConstantGrammar]
}

// TargetGrammar represents a call site selector
type TargetGrammar struct {
	New    *NewTarget    `parser:"  @@"`
	Static *StaticTarget `parser:"| @@"`
	Method *MethodTarget `parser:"| @@"`
}

// NewTarget represents `new Class(#N)`
type NewTarget struct {
	Class    string `parser:"'new' @Name"`
	Position int    `parser:"'(' '#' @Int ')'"`
}

// StaticTarget represents `Class::member(#N)`
type StaticTarget struct {
	Class    string `parser:"@Name '::'"`
	Member   string `parser:"@Name"`
	Position int    `parser:"'(' '#' @Int ')'"`
}

// MethodTarget represents `Capability->member(#N)`
type MethodTarget struct {
	Capability string `parser:"@Name '->'"`
	Member     string `parser:"@Name"`
	Position   int    `parser:"'(' '#' @Int ')'"`
}

// ConstantGrammar represents `literal => CONSTANT`
type ConstantGrammar struct {
	Key  *LiteralExpr `parser:"@@ '=>'"`
	Name string       `parser:"@Name"`
}

// LiteralExpr represents a quoted string or an integer
type LiteralExpr struct {
	Str *string `parser:"  @String"`
	Int *string `parser:"| @Int"`
}

// Target is a parsed call site selector
type Target struct {
	Kind     ast.CallKind
	Class    string // capability for method targets, class otherwise
	Member   string // empty for constructors
	Position int
}

func (t Target) String() string {
	switch t.Kind {
	case ast.NewCall:
		return fmt.Sprintf("new %s(#%d)", t.Class, t.Position)
	case ast.StaticCall:
		return fmt.Sprintf("%s::%s(#%d)", t.Class, t.Member, t.Position)
	}
	return fmt.Sprintf("%s->%s(#%d)", t.Class, t.Member, t.Position)
}

// NewRuleParser creates a new rule parser
func NewRuleParser() (*RuleParser, error) {
	lex := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
		{Name: "Int", Pattern: `[-+]?\d+`},
		{Name: "Name", Pattern: `\\?[a-zA-Z_][a-zA-Z0-9_]*(?:\\[a-zA-Z_][a-zA-Z0-9_]*)*`},
		{Name: "Punct", Pattern: `=>|->|::|[()#]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	targetParser, err := participle.Build[TargetGrammar](
		participle.Lexer(lex),
		participle.UseLookahead(3),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build target parser: %w", err)
	}

	constantParser, err := participle.Build[ConstantGrammar](
		participle.Lexer(lex),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build constant parser: %w", err)
	}

	return &RuleParser{
		targetParser:   targetParser,
		constantParser: constantParser,
	}, nil
}

// ParseTarget parses a call site selector
func (p *RuleParser) ParseTarget(input string) (*Target, error) {
	grammar, err := p.targetParser.ParseString("", strings.TrimSpace(input))
	if err != nil {
		return nil, fmt.Errorf("failed to parse target: %w", err)
	}

	var target Target
	switch {
	case grammar.New != nil:
		target = Target{Kind: ast.NewCall, Class: grammar.New.Class, Position: grammar.New.Position}
	case grammar.Static != nil:
		target = Target{
			Kind:     ast.StaticCall,
			Class:    grammar.Static.Class,
			Member:   grammar.Static.Member,
			Position: grammar.Static.Position,
		}
	case grammar.Method != nil:
		target = Target{
			Kind:     ast.MethodCall,
			Class:    grammar.Method.Capability,
			Member:   grammar.Method.Member,
			Position: grammar.Method.Position,
		}
	default:
		return nil, fmt.Errorf("invalid target: no valid form found")
	}

	target.Class = strings.TrimPrefix(target.Class, `\`)
	if target.Position < 0 {
		return nil, fmt.Errorf("invalid argument position %d", target.Position)
	}
	return &target, nil
}

// ParseConstant parses a single constant map entry
func (p *RuleParser) ParseConstant(input string) (ast.Scalar, string, error) {
	grammar, err := p.constantParser.ParseString("", strings.TrimSpace(input))
	if err != nil {
		return ast.Scalar{}, "", fmt.Errorf("failed to parse constant: %w", err)
	}

	if strings.Contains(grammar.Name, `\`) {
		return ast.Scalar{}, "", fmt.Errorf("constant name %q must not be qualified", grammar.Name)
	}

	switch {
	case grammar.Key.Str != nil:
		s, err := unquote(*grammar.Key.Str)
		if err != nil {
			return ast.Scalar{}, "", err
		}
		return ast.StringValue(s), grammar.Name, nil
	case grammar.Key.Int != nil:
		i, err := strconv.ParseInt(*grammar.Key.Int, 10, 64)
		if err != nil {
			return ast.Scalar{}, "", fmt.Errorf("invalid integer %q: %w", *grammar.Key.Int, err)
		}
		return ast.IntValue(i), grammar.Name, nil
	}
	return ast.Scalar{}, "", fmt.Errorf("invalid constant: no key found")
}

// unquote handles double quoted strings with Go escapes and single quoted
// strings where only \' and \\ are escapes
func unquote(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("invalid string literal %s", s)
	}
	if s[0] == '"' {
		out, err := strconv.Unquote(s)
		if err != nil {
			return "", fmt.Errorf("invalid string literal %s: %w", s, err)
		}
		return out, nil
	}

	body := s[1 : len(s)-1]
	result := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) && (body[i+1] == '\'' || body[i+1] == '\\') {
			result = append(result, body[i+1])
			i++
			continue
		}
		result = append(result, body[i])
	}
	return string(result), nil
}
