package main

import (
	"fmt"
	"strings"

	"github.com/KorAP/Koral-Rewriter/config"
)

// ParseListsParam parses the compact lists parameter into the ordered
// rule list IDs of a cascade.
//
// Format: id (";" id)*
//
// Every ID must name a configured list. The same list may appear more
// than once; it is then applied again on the output of the previous step.
func ParseListsParam(raw string, lists []config.RuleList) ([]string, error) {
	if raw == "" {
		return nil, nil
	}

	known := make(map[string]bool, len(lists))
	for _, list := range lists {
		known[list.ID] = true
	}

	parts := strings.Split(raw, ";")
	result := make([]string, 0, len(parts))

	for i, id := range parts {
		if id == "" {
			return nil, fmt.Errorf("empty list ID at position %d", i+1)
		}
		if strings.ContainsAny(id, "<>{}[]\\") {
			return nil, fmt.Errorf("list ID %q contains invalid characters", id)
		}
		if !known[id] {
			return nil, fmt.Errorf("unknown rule list ID %q", id)
		}
		result = append(result, id)
	}

	return result, nil
}

// BuildListsParam serialises list IDs back to the compact lists format
func BuildListsParam(ids []string) string {
	return strings.Join(ids, ";")
}
