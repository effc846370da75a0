package matcher

import (
	"fmt"

	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/rewrite"
	"github.com/KorAP/Koral-Rewriter/types"
)

// Reason explains why a call site was or was not matched
type Reason int

const (
	Matched Reason = iota
	UnknownType
	NotObject
	MissingCapability
	MemberMismatch
	NamedArgument
	MissingArgument
)

func (r Reason) String() string {
	switch r {
	case Matched:
		return "matched"
	case UnknownType:
		return "unknown receiver type"
	case NotObject:
		return "receiver is not an object"
	case MissingCapability:
		return "receiver lacks capability"
	case MemberMismatch:
		return "member name differs"
	case NamedArgument:
		return "call has named arguments"
	case MissingArgument:
		return "no argument at position"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// MatchResult is the outcome of matching one call site.
// A negative result is not an error.
type MatchResult struct {
	Matched bool
	Reason  Reason
}

func noMatch(r Reason) MatchResult {
	return MatchResult{Reason: r}
}

// CallMatcher decides whether a call is an eligible rewrite target
type CallMatcher struct {
	Capability string
	Member     string
	Position   int
}

// NewCallMatcher creates a new CallMatcher for calls of member on receivers
// satisfying capability that carry an argument at position
func NewCallMatcher(capability, member string, position int) (*CallMatcher, error) {
	if capability == "" {
		return nil, fmt.Errorf("empty capability")
	}
	if member == "" {
		return nil, fmt.Errorf("empty member name")
	}
	if position < 0 {
		return nil, fmt.Errorf("invalid argument position %d", position)
	}
	return &CallMatcher{
		Capability: capability,
		Member:     member,
		Position:   position,
	}, nil
}

// Match checks the receiver type, member name and argument shape of a call.
// It never mutates the call.
func (m *CallMatcher) Match(call *ast.Call, oracle types.Oracle) (MatchResult, error) {
	if call == nil {
		return MatchResult{}, rewrite.Malformed(nil, "nil call")
	}
	if oracle == nil {
		return MatchResult{}, rewrite.Malformed(call, "no type information available")
	}

	receiver, err := m.receiverType(call, oracle)
	if err != nil {
		return MatchResult{}, err
	}
	if types.IsUnknown(receiver) {
		return noMatch(UnknownType), nil
	}
	if !types.IsObjectLike(receiver) {
		return noMatch(NotObject), nil
	}
	if !oracle.IsAssignable(m.Capability, receiver) {
		return noMatch(MissingCapability), nil
	}

	// Dynamic member names never match
	name, ok := call.MemberName()
	if !ok || name != m.Member {
		return noMatch(MemberMismatch), nil
	}

	if HasNamedArg(call.Args) {
		return noMatch(NamedArgument), nil
	}
	if m.Position >= len(call.Args) {
		return noMatch(MissingArgument), nil
	}
	if arg := call.Args[m.Position]; arg == nil || arg.Value == nil {
		return MatchResult{}, rewrite.Malformed(call, "argument %d has no value", m.Position)
	}

	return MatchResult{Matched: true, Reason: Matched}, nil
}

// receiverType resolves the type the capability is checked against
func (m *CallMatcher) receiverType(call *ast.Call, oracle types.Oracle) (types.Descriptor, error) {
	switch call.Kind {
	case ast.MethodCall:
		if call.Var == nil {
			return nil, rewrite.Malformed(call, "method call without receiver")
		}
		return oracle.ResolveType(call.Var), nil
	case ast.StaticCall, ast.NewCall:
		if call.Class == "" {
			return types.Unknown, nil
		}
		return types.Named{Name: call.Class}, nil
	}
	return types.Unknown, nil
}

// HasNamedArg reports whether any argument carries a name
func HasNamedArg(args []*ast.Arg) bool {
	for _, a := range args {
		if a != nil && a.Name != "" {
			return true
		}
	}
	return false
}
