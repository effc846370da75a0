package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkerInterface = `Symfony\Component\Security\Core\Authorization\AuthorizationCheckerInterface`

func newTestHierarchy(t *testing.T) *Hierarchy {
	t.Helper()
	h := NewHierarchy()
	require.NoError(t, h.Declare(`Symfony\Component\Security\Core\Authorization\AuthorizationChecker`, checkerInterface))
	require.NoError(t, h.Declare(`App\Security\CachedChecker`, `Symfony\Component\Security\Core\Authorization\AuthorizationChecker`))
	require.NoError(t, h.Declare(checkerInterface))
	return h
}

func TestIsObjectLike(t *testing.T) {
	tests := []struct {
		name     string
		d        Descriptor
		expected bool
	}{
		{"Named", Named{Name: "Foo"}, true},
		{"Scalar", Scalar{Name: "string"}, false},
		{"Unknown", Unknown, false},
		{"Nil", nil, false},
		{"Union of named", Union{Members: []Descriptor{Named{Name: "A"}, Named{Name: "B"}}}, true},
		{"Nullable named", Union{Members: []Descriptor{Named{Name: "A"}, Scalar{Name: "null"}}}, false},
		{"Empty union", Union{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsObjectLike(tt.d))
		})
	}
}

func TestIsUnknown(t *testing.T) {
	assert.True(t, IsUnknown(Unknown))
	assert.True(t, IsUnknown(nil))
	assert.False(t, IsUnknown(Named{Name: "Foo"}))
	assert.Equal(t, "unknown", Unknown.String())
}

func TestHierarchySatisfies(t *testing.T) {
	h := newTestHierarchy(t)

	tests := []struct {
		name       string
		typ        string
		capability string
		expected   bool
	}{
		{"Interface satisfies itself", checkerInterface, checkerInterface, true},
		{"Direct implementation", `Symfony\Component\Security\Core\Authorization\AuthorizationChecker`, checkerInterface, true},
		{"Transitive implementation", `App\Security\CachedChecker`, checkerInterface, true},
		{"Leading separator and case", `\app\security\cachedchecker`, checkerInterface, true},
		{"Supertype does not satisfy subtype", checkerInterface, `App\Security\CachedChecker`, false},
		{"Undeclared type", `App\Other`, checkerInterface, false},
		{"Empty capability", `App\Security\CachedChecker`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, h.Satisfies(tt.typ, tt.capability))
		})
	}
}

func TestHierarchyCycle(t *testing.T) {
	h := NewHierarchy()
	require.NoError(t, h.Declare("A", "B"))
	require.NoError(t, h.Declare("B", "A"))

	assert.True(t, h.Satisfies("A", "B"))
	assert.False(t, h.Satisfies("A", "C"))
}

func TestHierarchyIsAssignable(t *testing.T) {
	h := newTestHierarchy(t)
	cached := Named{Name: `App\Security\CachedChecker`}

	assert.True(t, h.IsAssignable(checkerInterface, cached))
	assert.False(t, h.IsAssignable(checkerInterface, Unknown))
	assert.False(t, h.IsAssignable(checkerInterface, Scalar{Name: "string"}))
	assert.True(t, h.IsAssignable(checkerInterface, Union{Members: []Descriptor{cached, Named{Name: checkerInterface}}}))
	assert.False(t, h.IsAssignable(checkerInterface, Union{Members: []Descriptor{cached, Named{Name: "Other"}}}))
	assert.False(t, h.IsAssignable(checkerInterface, Union{}))
}

func TestHierarchyDeclareErrors(t *testing.T) {
	h := NewHierarchy()
	assert.Error(t, h.Declare(""))
	assert.Error(t, h.Declare("A", " "))
	require.NoError(t, h.Declare("A"))
	assert.Equal(t, 1, h.Len())
}
