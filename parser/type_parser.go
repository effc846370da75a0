package parser

import (
	"fmt"
	"strings"

	"github.com/KorAP/Koral-Rewriter/types"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// TypeParser parses type annotations such as `?App\Checker|App\Voter`
type TypeParser struct {
	parser *participle.Parser[TypeGrammar]
}

// TypeGrammar represents a union of type names
type TypeGrammar struct {
	Members []*TypeMember `parser:"@@ ( '|' @@ )*"`
}

// TypeMember represents a single, possibly nullable, type name
type TypeMember struct {
	Nullable bool   `parser:"( @'?' )?"`
	Name     string `parser:"@Name"`
}

// scalarTypes are builtin types that never satisfy a capability
var scalarTypes = map[string]bool{
	"string":   true,
	"int":      true,
	"float":    true,
	"bool":     true,
	"true":     true,
	"false":    true,
	"null":     true,
	"array":    true,
	"callable": true,
	"iterable": true,
	"object":   true,
	"resource": true,
	"void":     true,
	"never":    true,
}

// NewTypeParser creates a new type annotation parser
func NewTypeParser() (*TypeParser, error) {
	lex := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Name", Pattern: `\\?[a-zA-Z_][a-zA-Z0-9_]*(?:\\[a-zA-Z_][a-zA-Z0-9_]*)*`},
		{Name: "Punct", Pattern: `[|?]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	p, err := participle.Build[TypeGrammar](
		participle.Lexer(lex),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build type parser: %w", err)
	}
	return &TypeParser{parser: p}, nil
}

// Parse converts a type annotation into a descriptor. Empty input and any
// member that is `mixed` resolve to types.Unknown.
func (p *TypeParser) Parse(input string) (types.Descriptor, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Unknown, nil
	}

	grammar, err := p.parser.ParseString("", input)
	if err != nil {
		return types.Unknown, fmt.Errorf("failed to parse type %q: %w", input, err)
	}

	var members []types.Descriptor
	for _, m := range grammar.Members {
		name := strings.TrimPrefix(m.Name, `\`)
		lower := strings.ToLower(name)
		switch {
		case lower == "mixed":
			return types.Unknown, nil
		case scalarTypes[lower]:
			members = append(members, types.Scalar{Name: lower})
		default:
			members = append(members, types.Named{Name: name})
		}
		if m.Nullable {
			members = append(members, types.Scalar{Name: "null"})
		}
	}

	if len(members) == 1 {
		return members[0], nil
	}
	return types.Union{Members: members}, nil
}
