package ast

// ast is the syntax tree consumed and produced by the call rewriter.

import (
	"fmt"
	"strconv"
)

// NodeType represents the type of a node in the AST
type NodeType string

// CallKind represents the syntactic shape of a call
type CallKind string

// ScalarKind represents the kind of a scalar literal
type ScalarKind string

const (
	CallNode          NodeType = "expr:call"
	LiteralNode       NodeType = "expr:literal"
	CollectionNode    NodeType = "expr:collection"
	LogicalOrNode     NodeType = "expr:or"
	ConstFetchNode    NodeType = "expr:constFetch"
	VariableNode      NodeType = "expr:variable"
	PropertyFetchNode NodeType = "expr:propertyFetch"
	IdentifierNode    NodeType = "ident"

	MethodCall   CallKind = "method"
	StaticCall   CallKind = "static"
	NewCall      CallKind = "new"
	FunctionCall CallKind = "function"

	StringScalar ScalarKind = "string"
	IntScalar    ScalarKind = "int"
)

// Node represents a node in the AST
type Node interface {
	Type() NodeType
	Attrs() Attributes
	Clone() Node
}

// CallLike is any call-shaped node exposing an ordered argument list
type CallLike interface {
	Node
	Arguments() []*Arg
	SetArgument(position int, arg *Arg)
}

// Attributes holds opaque source metadata (positions, comments, formatting).
// Rewrites copy attributes, they never invent them.
type Attributes map[string]any

// Clone returns a deep copy of the attributes
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Position returns the source location fields of the attributes, if any
func (a Attributes) Position() string {
	line, hasLine := a["startLine"]
	pos, hasPos := a["startFilePos"]
	switch {
	case hasLine && hasPos:
		return fmt.Sprintf("line %v (offset %v)", line, pos)
	case hasLine:
		return fmt.Sprintf("line %v", line)
	case hasPos:
		return fmt.Sprintf("offset %v", pos)
	}
	return "unknown position"
}

// Scalar is a comparable literal value, usable as a map key
type Scalar struct {
	Kind ScalarKind
	Str  string
	Int  int64
}

// StringValue creates a string scalar
func StringValue(s string) Scalar {
	return Scalar{Kind: StringScalar, Str: s}
}

// IntValue creates an integer scalar
func IntValue(i int64) Scalar {
	return Scalar{Kind: IntScalar, Int: i}
}

// Key returns the scalar as a constant map key. Strings holding a
// canonical decimal integer ("200", "-5", but not "0200", "+5" or "-0")
// that fits in int64 become integers, so '200' and 200 share a key.
func (s Scalar) Key() Scalar {
	if s.Kind != StringScalar || !isCanonicalInt(s.Str) {
		return s
	}
	i, err := strconv.ParseInt(s.Str, 10, 64)
	if err != nil {
		return s
	}
	return IntValue(i)
}

func isCanonicalInt(s string) bool {
	digits := s
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
		if digits == "0" {
			return false
		}
	}
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s Scalar) String() string {
	if s.Kind == IntScalar {
		return fmt.Sprintf("%d", s.Int)
	}
	return fmt.Sprintf("%q", s.Str)
}

// Arg represents a single call argument
type Arg struct {
	Name       string // empty for positional arguments
	Value      Node
	Unpack     bool
	Attributes Attributes
}

// Clone creates a deep copy of the argument
func (a *Arg) Clone() *Arg {
	if a == nil {
		return nil
	}
	return &Arg{
		Name:       a.Name,
		Value:      cloneOrNil(a.Value),
		Unpack:     a.Unpack,
		Attributes: a.Attributes.Clone(),
	}
}

// Call represents a method, static, constructor or function call
type Call struct {
	Kind       CallKind
	Var        Node   // receiver expression, method calls only
	Class      string // class name, static and constructor calls only
	Name       Node   // member identity, usually an *Identifier
	Args       []*Arg
	Attributes Attributes
}

func (c *Call) Type() NodeType {
	return CallNode
}

func (c *Call) Attrs() Attributes {
	return c.Attributes
}

func (c *Call) Arguments() []*Arg {
	return c.Args
}

// SetArgument replaces the argument at the given position
func (c *Call) SetArgument(position int, arg *Arg) {
	c.Args[position] = arg
}

// MemberName returns the symbolic member name, or false when the name is dynamic
func (c *Call) MemberName() (string, bool) {
	id, ok := c.Name.(*Identifier)
	if !ok || id == nil {
		return "", false
	}
	return id.Name, true
}

// Clone creates a deep copy of the call
func (c *Call) Clone() Node {
	args := make([]*Arg, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.Clone()
	}
	return &Call{
		Kind:       c.Kind,
		Var:        cloneOrNil(c.Var),
		Class:      c.Class,
		Name:       cloneOrNil(c.Name),
		Args:       args,
		Attributes: c.Attributes.Clone(),
	}
}

// Literal represents a string or integer literal
type Literal struct {
	Value      Scalar
	Attributes Attributes
}

func (l *Literal) Type() NodeType {
	return LiteralNode
}

func (l *Literal) Attrs() Attributes {
	return l.Attributes
}

func (l *Literal) Clone() Node {
	return &Literal{Value: l.Value, Attributes: l.Attributes.Clone()}
}

// Item represents one element of a collection literal
type Item struct {
	Key        Node // nil for positional elements
	Value      Node
	Unpack     bool
	Attributes Attributes
}

// Clone creates a deep copy of the item
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	return &Item{
		Key:        cloneOrNil(i.Key),
		Value:      cloneOrNil(i.Value),
		Unpack:     i.Unpack,
		Attributes: i.Attributes.Clone(),
	}
}

// Collection represents a collection literal. Nil items are holes.
type Collection struct {
	Items      []*Item
	Attributes Attributes
}

func (c *Collection) Type() NodeType {
	return CollectionNode
}

func (c *Collection) Attrs() Attributes {
	return c.Attributes
}

func (c *Collection) Clone() Node {
	items := make([]*Item, len(c.Items))
	for i, it := range c.Items {
		items[i] = it.Clone()
	}
	return &Collection{Items: items, Attributes: c.Attributes.Clone()}
}

// LogicalOr represents a short-circuiting disjunction
type LogicalOr struct {
	Left       Node
	Right      Node
	Attributes Attributes
}

func (o *LogicalOr) Type() NodeType {
	return LogicalOrNode
}

func (o *LogicalOr) Attrs() Attributes {
	return o.Attributes
}

func (o *LogicalOr) Clone() Node {
	return &LogicalOr{
		Left:       cloneOrNil(o.Left),
		Right:      cloneOrNil(o.Right),
		Attributes: o.Attributes.Clone(),
	}
}

// ConstFetch represents a qualified class constant reference
type ConstFetch struct {
	Class      string
	Name       string
	Attributes Attributes
}

func (f *ConstFetch) Type() NodeType {
	return ConstFetchNode
}

func (f *ConstFetch) Attrs() Attributes {
	return f.Attributes
}

func (f *ConstFetch) Clone() Node {
	return &ConstFetch{Class: f.Class, Name: f.Name, Attributes: f.Attributes.Clone()}
}

// Identifier represents a symbolic name
type Identifier struct {
	Name       string
	Attributes Attributes
}

func (i *Identifier) Type() NodeType {
	return IdentifierNode
}

func (i *Identifier) Attrs() Attributes {
	return i.Attributes
}

func (i *Identifier) Clone() Node {
	return &Identifier{Name: i.Name, Attributes: i.Attributes.Clone()}
}

// Variable represents a variable reference
type Variable struct {
	Name       string
	Attributes Attributes
}

func (v *Variable) Type() NodeType {
	return VariableNode
}

func (v *Variable) Attrs() Attributes {
	return v.Attributes
}

func (v *Variable) Clone() Node {
	return &Variable{Name: v.Name, Attributes: v.Attributes.Clone()}
}

// PropertyFetch represents a property access on an object expression
type PropertyFetch struct {
	Var        Node
	Name       Node
	Attributes Attributes
}

func (p *PropertyFetch) Type() NodeType {
	return PropertyFetchNode
}

func (p *PropertyFetch) Attrs() Attributes {
	return p.Attributes
}

func (p *PropertyFetch) Clone() Node {
	return &PropertyFetch{
		Var:        cloneOrNil(p.Var),
		Name:       cloneOrNil(p.Name),
		Attributes: p.Attributes.Clone(),
	}
}

// Slot is a named child position of a catchall node
type Slot struct {
	Name  string
	Nodes []Node
	List  bool // true if the slot holds an array in the wire format
}

// CatchallNode represents any node type not explicitly handled
type CatchallNode struct {
	NodeType   string         // The original @type value
	Fields     map[string]any // Non-node fields, preserved verbatim
	Slots      []Slot         // Child nodes in wire order
	Attributes Attributes
}

func (c *CatchallNode) Type() NodeType {
	return NodeType(c.NodeType)
}

func (c *CatchallNode) Attrs() Attributes {
	return c.Attributes
}

func (c *CatchallNode) Clone() Node {
	fields := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = cloneValue(v)
	}
	slots := make([]Slot, len(c.Slots))
	for i, s := range c.Slots {
		nodes := make([]Node, len(s.Nodes))
		for j, n := range s.Nodes {
			nodes[j] = cloneOrNil(n)
		}
		slots[i] = Slot{Name: s.Name, Nodes: nodes, List: s.List}
	}
	return &CatchallNode{
		NodeType:   c.NodeType,
		Fields:     fields,
		Slots:      slots,
		Attributes: c.Attributes.Clone(),
	}
}

// CopyAttributes replaces the attributes of dst with a copy of those of src
func CopyAttributes(dst, src Node) {
	attrs := src.Attrs().Clone()
	switch n := dst.(type) {
	case *Call:
		n.Attributes = attrs
	case *Literal:
		n.Attributes = attrs
	case *Collection:
		n.Attributes = attrs
	case *LogicalOr:
		n.Attributes = attrs
	case *ConstFetch:
		n.Attributes = attrs
	case *Identifier:
		n.Attributes = attrs
	case *Variable:
		n.Attributes = attrs
	case *PropertyFetch:
		n.Attributes = attrs
	case *CatchallNode:
		n.Attributes = attrs
	}
}

func cloneOrNil(n Node) Node {
	if n == nil {
		return nil
	}
	return n.Clone()
}
