package oracle

import (
	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/parser"
	"github.com/KorAP/Koral-Rewriter/types"
	"github.com/rs/zerolog/log"
)

// TypeAttribute is the attribute under which an upstream analyzer stores
// the resolved type of an expression
const TypeAttribute = "type"

// AnnotationOracle resolves types from node annotations and answers
// capability queries against a declared hierarchy
type AnnotationOracle struct {
	hierarchy  *types.Hierarchy
	typeParser *parser.TypeParser
}

// NewAnnotationOracle creates a new AnnotationOracle
func NewAnnotationOracle(hierarchy *types.Hierarchy) (*AnnotationOracle, error) {
	typeParser, err := parser.NewTypeParser()
	if err != nil {
		return nil, err
	}
	if hierarchy == nil {
		hierarchy = types.NewHierarchy()
	}
	return &AnnotationOracle{
		hierarchy:  hierarchy,
		typeParser: typeParser,
	}, nil
}

// ResolveType returns the annotated type of expr. Missing, non-string and
// unparsable annotations resolve to types.Unknown.
func (o *AnnotationOracle) ResolveType(expr ast.Node) types.Descriptor {
	if expr == nil {
		return types.Unknown
	}
	annotation, ok := expr.Attrs()[TypeAttribute].(string)
	if !ok {
		return types.Unknown
	}

	d, err := o.typeParser.Parse(annotation)
	if err != nil {
		log.Debug().Err(err).
			Str("annotation", annotation).
			Str("position", expr.Attrs().Position()).
			Msg("Ignoring unparsable type annotation")
		return types.Unknown
	}
	return d
}

// IsAssignable reports whether d satisfies capability
func (o *AnnotationOracle) IsAssignable(capability string, d types.Descriptor) bool {
	return o.hierarchy.IsAssignable(capability, d)
}
