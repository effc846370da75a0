package types

// types describes the semantic type information the rewriter consumes.
// Types are resolved by an external oracle; nothing here infers them.

import (
	"strings"

	"github.com/KorAP/Koral-Rewriter/ast"
)

// Descriptor is an opaque semantic type tag for an expression
type Descriptor interface {
	String() string
	descriptor()
}

// Named represents a class or interface type
type Named struct {
	Name string
}

func (n Named) String() string {
	return n.Name
}

func (Named) descriptor() {}

// Scalar represents a non-object builtin type such as string or int
type Scalar struct {
	Name string
}

func (s Scalar) String() string {
	return s.Name
}

func (Scalar) descriptor() {}

// Union represents a type that may be any of its members
type Union struct {
	Members []Descriptor
}

func (u Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, "|")
}

func (Union) descriptor() {}

type unknown struct{}

func (unknown) String() string {
	return "unknown"
}

func (unknown) descriptor() {}

// Unknown is the sentinel for missing or ambiguous type information.
// It never satisfies a capability query.
var Unknown Descriptor = unknown{}

// IsUnknown reports whether d carries no usable type information
func IsUnknown(d Descriptor) bool {
	if d == nil {
		return true
	}
	_, ok := d.(unknown)
	return ok
}

// IsObjectLike reports whether d describes an object: a named type, or a
// union made only of object-like members
func IsObjectLike(d Descriptor) bool {
	switch t := d.(type) {
	case Named:
		return true
	case Union:
		if len(t.Members) == 0 {
			return false
		}
		for _, m := range t.Members {
			if !IsObjectLike(m) {
				return false
			}
		}
		return true
	}
	return false
}

// Oracle resolves expression types and answers capability queries.
// Both methods must be total and free of side effects.
type Oracle interface {
	ResolveType(expr ast.Node) Descriptor
	IsAssignable(capability string, d Descriptor) bool
}

// NormalizeName strips a leading namespace separator and lowercases the
// name, since class names are case-insensitive
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), `\`))
}
