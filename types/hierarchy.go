package types

import (
	"fmt"
)

// Hierarchy is a declared graph of classes and interfaces and their
// direct supertypes
type Hierarchy struct {
	supertypes map[string][]string
}

// NewHierarchy creates an empty hierarchy
func NewHierarchy() *Hierarchy {
	return &Hierarchy{supertypes: make(map[string][]string)}
}

// Declare records that name directly extends or implements each of supertypes
func (h *Hierarchy) Declare(name string, supertypes ...string) error {
	key := NormalizeName(name)
	if key == "" {
		return fmt.Errorf("empty type name")
	}
	for _, s := range supertypes {
		sk := NormalizeName(s)
		if sk == "" {
			return fmt.Errorf("empty supertype for %s", name)
		}
		h.supertypes[key] = append(h.supertypes[key], sk)
	}
	if _, ok := h.supertypes[key]; !ok {
		h.supertypes[key] = nil
	}
	return nil
}

// Satisfies reports whether name is capability or transitively extends it
func (h *Hierarchy) Satisfies(name, capability string) bool {
	target := NormalizeName(capability)
	if target == "" {
		return false
	}

	visited := make(map[string]bool)
	stack := []string{NormalizeName(name)}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == target {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		stack = append(stack, h.supertypes[current]...)
	}
	return false
}

// IsAssignable answers a capability query for a descriptor. Unknown and
// scalar types never satisfy a capability; a union satisfies it only when
// every member does.
func (h *Hierarchy) IsAssignable(capability string, d Descriptor) bool {
	switch t := d.(type) {
	case Named:
		return h.Satisfies(t.Name, capability)
	case Union:
		if len(t.Members) == 0 {
			return false
		}
		for _, m := range t.Members {
			if !h.IsAssignable(capability, m) {
				return false
			}
		}
		return true
	}
	return false
}

// Len returns the number of declared types
func (h *Hierarchy) Len() int {
	return len(h.supertypes)
}
