package parser

// parser converts between the JSON wire format of syntax trees and AST nodes.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/KorAP/Koral-Rewriter/ast"
)

const (
	typeField       = "@type"
	attributesField = "attributes"
)

// ParseJSON parses a JSON syntax tree into our AST representation
func ParseJSON(data []byte) (ast.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", raw)
	}
	if _, ok := obj[typeField].(string); !ok {
		return nil, fmt.Errorf("missing required field '@type' in JSON")
	}
	return parseNode(obj)
}

// isNodeObject reports whether v is a JSON object tagged with @type
func isNodeObject(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, ok = obj[typeField].(string)
	return ok
}

// parseChild parses an optional child node field
func parseChild(obj map[string]any, field string) (ast.Node, error) {
	v, ok := obj[field]
	if !ok || v == nil {
		return nil, nil
	}
	child, ok := v.(map[string]any)
	if !ok || !isNodeObject(child) {
		return nil, fmt.Errorf("field '%s' must be a node object", field)
	}
	node, err := parseNode(child)
	if err != nil {
		return nil, fmt.Errorf("error parsing '%s': %w", field, err)
	}
	return node, nil
}

func parseAttributes(obj map[string]any) (ast.Attributes, error) {
	v, ok := obj[attributesField]
	if !ok || v == nil {
		return nil, nil
	}
	attrs, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field 'attributes' must be an object")
	}
	return ast.Attributes(attrs), nil
}

func stringField(obj map[string]any, field string) (string, error) {
	v, ok := obj[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field '%s' must be a string", field)
	}
	return s, nil
}

func boolField(obj map[string]any, field string) bool {
	b, _ := obj[field].(bool)
	return b
}

// parseNode converts a raw JSON object into an AST node
func parseNode(obj map[string]any) (ast.Node, error) {
	nodeType, _ := obj[typeField].(string)

	attrs, err := parseAttributes(obj)
	if err != nil {
		return nil, fmt.Errorf("node of type '%s': %w", nodeType, err)
	}

	switch ast.NodeType(nodeType) {
	case ast.CallNode:
		return parseCall(obj, attrs)

	case ast.LiteralNode:
		value, err := parseScalar(obj)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Value: value, Attributes: attrs}, nil

	case ast.CollectionNode:
		return parseCollection(obj, attrs)

	case ast.LogicalOrNode:
		left, err := parseChild(obj, "left")
		if err != nil {
			return nil, err
		}
		right, err := parseChild(obj, "right")
		if err != nil {
			return nil, err
		}
		if left == nil || right == nil {
			return nil, fmt.Errorf("disjunction must have 'left' and 'right' operands")
		}
		return &ast.LogicalOr{Left: left, Right: right, Attributes: attrs}, nil

	case ast.ConstFetchNode:
		class, err := stringField(obj, "class")
		if err != nil {
			return nil, err
		}
		name, err := stringField(obj, "name")
		if err != nil {
			return nil, err
		}
		if class == "" || name == "" {
			return nil, fmt.Errorf("constant fetch must have 'class' and 'name' fields")
		}
		return &ast.ConstFetch{Class: class, Name: name, Attributes: attrs}, nil

	case ast.IdentifierNode:
		name, err := stringField(obj, "name")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("identifier must have a 'name' field")
		}
		return &ast.Identifier{Name: name, Attributes: attrs}, nil

	case ast.VariableNode:
		name, err := stringField(obj, "name")
		if err != nil {
			return nil, err
		}
		return &ast.Variable{Name: name, Attributes: attrs}, nil

	case ast.PropertyFetchNode:
		v, err := parseChild(obj, "var")
		if err != nil {
			return nil, err
		}
		name, err := parseChild(obj, "name")
		if err != nil {
			return nil, err
		}
		return &ast.PropertyFetch{Var: v, Name: name, Attributes: attrs}, nil

	default:
		return parseCatchall(nodeType, obj, attrs)
	}
}

func parseCall(obj map[string]any, attrs ast.Attributes) (ast.Node, error) {
	kind, err := stringField(obj, "kind")
	if err != nil {
		return nil, err
	}
	call := &ast.Call{Kind: ast.CallKind(kind), Attributes: attrs}

	switch call.Kind {
	case ast.MethodCall, ast.StaticCall, ast.NewCall, ast.FunctionCall:
	default:
		return nil, fmt.Errorf("invalid call kind '%s', must be one of: 'method', 'static', 'new', 'function'", kind)
	}

	if call.Var, err = parseChild(obj, "var"); err != nil {
		return nil, err
	}
	if call.Name, err = parseChild(obj, "name"); err != nil {
		return nil, err
	}
	if call.Class, err = stringField(obj, "class"); err != nil {
		return nil, err
	}

	rawArgs, ok := obj["args"]
	if !ok || rawArgs == nil {
		return call, nil
	}
	list, ok := rawArgs.([]any)
	if !ok {
		return nil, fmt.Errorf("field 'args' must be an array")
	}

	call.Args = make([]*ast.Arg, len(list))
	for i, rawArg := range list {
		argObj, ok := rawArg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("argument %d must be an object", i+1)
		}
		value, err := parseChild(argObj, "value")
		if err != nil {
			return nil, fmt.Errorf("error parsing argument %d: %w", i+1, err)
		}
		if value == nil {
			return nil, fmt.Errorf("argument %d must have a 'value' field", i+1)
		}
		name, err := stringField(argObj, "name")
		if err != nil {
			return nil, fmt.Errorf("error parsing argument %d: %w", i+1, err)
		}
		argAttrs, err := parseAttributes(argObj)
		if err != nil {
			return nil, fmt.Errorf("error parsing argument %d: %w", i+1, err)
		}
		call.Args[i] = &ast.Arg{
			Name:       name,
			Value:      value,
			Unpack:     boolField(argObj, "unpack"),
			Attributes: argAttrs,
		}
	}
	return call, nil
}

func parseScalar(obj map[string]any) (ast.Scalar, error) {
	kind, err := stringField(obj, "kind")
	if err != nil {
		return ast.Scalar{}, err
	}

	switch ast.ScalarKind(kind) {
	case ast.StringScalar:
		s, ok := obj["value"].(string)
		if !ok {
			return ast.Scalar{}, fmt.Errorf("string literal must have a string 'value'")
		}
		return ast.StringValue(s), nil
	case ast.IntScalar:
		n, ok := obj["value"].(json.Number)
		if !ok {
			return ast.Scalar{}, fmt.Errorf("int literal must have a numeric 'value'")
		}
		i, err := n.Int64()
		if err != nil {
			return ast.Scalar{}, fmt.Errorf("invalid int literal '%s': %w", n, err)
		}
		return ast.IntValue(i), nil
	}
	return ast.Scalar{}, fmt.Errorf("invalid literal kind '%s', must be one of: 'string', 'int'", kind)
}

func parseCollection(obj map[string]any, attrs ast.Attributes) (ast.Node, error) {
	collection := &ast.Collection{Attributes: attrs}

	rawItems, ok := obj["items"]
	if !ok || rawItems == nil {
		return collection, nil
	}
	list, ok := rawItems.([]any)
	if !ok {
		return nil, fmt.Errorf("field 'items' must be an array")
	}

	collection.Items = make([]*ast.Item, len(list))
	for i, rawItem := range list {
		if rawItem == nil {
			continue
		}
		itemObj, ok := rawItem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d must be an object or null", i+1)
		}
		key, err := parseChild(itemObj, "key")
		if err != nil {
			return nil, fmt.Errorf("error parsing item %d: %w", i+1, err)
		}
		value, err := parseChild(itemObj, "value")
		if err != nil {
			return nil, fmt.Errorf("error parsing item %d: %w", i+1, err)
		}
		if value == nil {
			return nil, fmt.Errorf("item %d must have a 'value' field", i+1)
		}
		itemAttrs, err := parseAttributes(itemObj)
		if err != nil {
			return nil, fmt.Errorf("error parsing item %d: %w", i+1, err)
		}
		collection.Items[i] = &ast.Item{
			Key:        key,
			Value:      value,
			Unpack:     boolField(itemObj, "unpack"),
			Attributes: itemAttrs,
		}
	}
	return collection, nil
}

// parseCatchall keeps unknown node types. Object fields tagged with @type
// and arrays made only of such objects become child slots, everything else
// is preserved verbatim.
func parseCatchall(nodeType string, obj map[string]any, attrs ast.Attributes) (ast.Node, error) {
	catchall := &ast.CatchallNode{
		NodeType:   nodeType,
		Fields:     make(map[string]any),
		Attributes: attrs,
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k != typeField && k != attributesField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := obj[k]
		switch t := v.(type) {
		case map[string]any:
			if isNodeObject(t) {
				child, err := parseNode(t)
				if err != nil {
					return nil, fmt.Errorf("error parsing '%s' in node type '%s': %w", k, nodeType, err)
				}
				catchall.Slots = append(catchall.Slots, ast.Slot{Name: k, Nodes: []ast.Node{child}})
				continue
			}
		case []any:
			if isNodeList(t) {
				nodes := make([]ast.Node, len(t))
				for i, e := range t {
					child, err := parseNode(e.(map[string]any))
					if err != nil {
						return nil, fmt.Errorf("error parsing '%s' %d in node type '%s': %w", k, i+1, nodeType, err)
					}
					nodes[i] = child
				}
				catchall.Slots = append(catchall.Slots, ast.Slot{Name: k, Nodes: nodes, List: true})
				continue
			}
		}
		catchall.Fields[k] = v
	}
	return catchall, nil
}

func isNodeList(list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, e := range list {
		if !isNodeObject(e) {
			return false
		}
	}
	return true
}

// SerializeToJSON converts an AST node back to JSON
func SerializeToJSON(node ast.Node) ([]byte, error) {
	raw, err := nodeToRaw(node)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(raw, "", "  ")
}

// nodeToRaw converts an AST node to a JSON-ready map
func nodeToRaw(node ast.Node) (map[string]any, error) {
	if node == nil {
		return nil, fmt.Errorf("cannot serialize nil node")
	}

	raw := map[string]any{typeField: string(node.Type())}
	if attrs := node.Attrs(); len(attrs) > 0 {
		raw[attributesField] = map[string]any(attrs)
	}

	var err error
	switch n := node.(type) {
	case *ast.Call:
		raw["kind"] = string(n.Kind)
		if n.Var != nil {
			if raw["var"], err = nodeToRaw(n.Var); err != nil {
				return nil, err
			}
		}
		if n.Class != "" {
			raw["class"] = n.Class
		}
		if n.Name != nil {
			if raw["name"], err = nodeToRaw(n.Name); err != nil {
				return nil, err
			}
		}
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			if a == nil {
				return nil, fmt.Errorf("cannot serialize nil argument %d", i+1)
			}
			arg := map[string]any{}
			if arg["value"], err = nodeToRaw(a.Value); err != nil {
				return nil, err
			}
			if a.Name != "" {
				arg["name"] = a.Name
			}
			if a.Unpack {
				arg["unpack"] = true
			}
			if len(a.Attributes) > 0 {
				arg[attributesField] = map[string]any(a.Attributes)
			}
			args[i] = arg
		}
		raw["args"] = args

	case *ast.Literal:
		raw["kind"] = string(n.Value.Kind)
		if n.Value.Kind == ast.IntScalar {
			raw["value"] = n.Value.Int
		} else {
			raw["value"] = n.Value.Str
		}

	case *ast.Collection:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			if it == nil {
				continue
			}
			item := map[string]any{}
			if it.Key != nil {
				if item["key"], err = nodeToRaw(it.Key); err != nil {
					return nil, err
				}
			}
			if item["value"], err = nodeToRaw(it.Value); err != nil {
				return nil, err
			}
			if it.Unpack {
				item["unpack"] = true
			}
			if len(it.Attributes) > 0 {
				item[attributesField] = map[string]any(it.Attributes)
			}
			items[i] = item
		}
		raw["items"] = items

	case *ast.LogicalOr:
		if raw["left"], err = nodeToRaw(n.Left); err != nil {
			return nil, err
		}
		if raw["right"], err = nodeToRaw(n.Right); err != nil {
			return nil, err
		}

	case *ast.ConstFetch:
		raw["class"] = n.Class
		raw["name"] = n.Name

	case *ast.Identifier:
		raw["name"] = n.Name

	case *ast.Variable:
		raw["name"] = n.Name

	case *ast.PropertyFetch:
		if n.Var != nil {
			if raw["var"], err = nodeToRaw(n.Var); err != nil {
				return nil, err
			}
		}
		if n.Name != nil {
			if raw["name"], err = nodeToRaw(n.Name); err != nil {
				return nil, err
			}
		}

	case *ast.CatchallNode:
		raw[typeField] = n.NodeType
		for k, v := range n.Fields {
			raw[k] = v
		}
		for _, slot := range n.Slots {
			nodes := make([]any, len(slot.Nodes))
			for i, child := range slot.Nodes {
				if nodes[i], err = nodeToRaw(child); err != nil {
					return nil, err
				}
			}
			if slot.List {
				raw[slot.Name] = nodes
			} else if len(nodes) == 1 {
				raw[slot.Name] = nodes[0]
			}
		}

	default:
		return nil, fmt.Errorf("cannot serialize node of type %T", node)
	}

	return raw, nil
}
