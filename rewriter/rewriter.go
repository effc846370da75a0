package rewriter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KorAP/Koral-Rewriter/ast"
	"github.com/KorAP/Koral-Rewriter/config"
	"github.com/KorAP/Koral-Rewriter/parser"
	"github.com/KorAP/Koral-Rewriter/rewrite"
	"github.com/KorAP/Koral-Rewriter/rules"
	"github.com/KorAP/Koral-Rewriter/types"
	"github.com/rs/zerolog/log"
)

var (
	// ErrListNotFound is returned for rule list IDs the rewriter does not know
	ErrListNotFound = errors.New("rule list not found")

	// ErrInvalidTree is returned for JSON that does not describe a syntax tree
	ErrInvalidTree = errors.New("invalid syntax tree")
)

// Rewriter handles the application of rule lists to JSON syntax trees
type Rewriter struct {
	order       []string
	ruleLists   map[string]*config.RuleList
	parsedRules map[string][]rules.Rule
}

// NewRewriter creates a new Rewriter from rule lists. Rules are parsed
// immediately and share the given oracle.
func NewRewriter(lists []config.RuleList, oracle types.Oracle) (*Rewriter, error) {
	r := &Rewriter{
		ruleLists:   make(map[string]*config.RuleList),
		parsedRules: make(map[string][]rules.Rule),
	}

	for _, list := range lists {
		if _, exists := r.ruleLists[list.ID]; exists {
			return nil, fmt.Errorf("duplicate rule list ID found: %s", list.ID)
		}

		listCopy := list
		r.ruleLists[list.ID] = &listCopy
		r.order = append(r.order, list.ID)

		parsed, err := list.ParseRules(oracle)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rules for list %s: %w", list.ID, err)
		}
		r.parsedRules[list.ID] = parsed
	}

	return r, nil
}

// Lists returns the configured rule lists in declaration order
func (r *Rewriter) Lists() []config.RuleList {
	lists := make([]config.RuleList, len(r.order))
	for i, id := range r.order {
		lists[i] = *r.ruleLists[id]
	}
	return lists
}

// HasList reports whether a rule list with the given ID exists
func (r *Rewriter) HasList(listID string) bool {
	_, ok := r.ruleLists[listID]
	return ok
}

// ApplyRules applies the rules of a list to a JSON syntax tree.
// jsonData is not modified.
func (r *Rewriter) ApplyRules(listID string, jsonData any) (any, error) {
	return r.CascadeRules([]string{listID}, jsonData)
}

// CascadeRules applies several rule lists in sequence, the output of each
// list being the input of the next. An empty list of IDs returns jsonData
// unchanged.
func (r *Rewriter) CascadeRules(listIDs []string, jsonData any) (any, error) {
	for _, id := range listIDs {
		if !r.HasList(id) {
			return nil, fmt.Errorf("%w: %s", ErrListNotFound, id)
		}
	}
	if len(listIDs) == 0 {
		return jsonData, nil
	}

	jsonBytes, err := json.Marshal(jsonData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input JSON: %w", err)
	}

	node, err := parser.ParseJSON(jsonBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON into AST: %w", ErrInvalidTree, err)
	}

	for _, id := range listIDs {
		node, err = r.RewriteNode(id, node)
		if err != nil {
			return nil, err
		}
	}

	resultBytes, err := parser.SerializeToJSON(node)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize AST to JSON: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(resultBytes))
	dec.UseNumber()
	var resultData any
	if err := dec.Decode(&resultData); err != nil {
		return nil, fmt.Errorf("failed to parse result JSON: %w", err)
	}

	return resultData, nil
}

// RewriteNode applies the rules of a list to a syntax tree. The rules run
// as successive passes in declaration order. The tree is cloned first, so
// node is left untouched even when a rule fails.
func (r *Rewriter) RewriteNode(listID string, node ast.Node) (ast.Node, error) {
	parsed, ok := r.parsedRules[listID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrListNotFound, listID)
	}
	if node == nil {
		return nil, rewrite.Malformed(nil, "nil syntax tree")
	}

	root := node.Clone()
	for _, rule := range parsed {
		p := &pass{rule: rule}
		var err error
		root, err = p.walk(root)
		if err != nil {
			var malformed *rewrite.MalformedInputError
			if errors.As(err, &malformed) {
				log.Warn().
					Str("list", listID).
					Str("rule", rule.ID()).
					Str("node", string(malformed.NodeType)).
					Str("position", malformed.Attributes.Position()).
					Msg(malformed.Detail)
			}
			return nil, fmt.Errorf("rule %s: %w", rule.ID(), err)
		}
		log.Debug().
			Str("list", listID).
			Str("rule", rule.ID()).
			Int("applied", p.applied).
			Msg("Rule pass finished")
	}
	return root, nil
}
