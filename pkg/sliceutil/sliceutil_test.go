package sliceutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "a"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, "a"))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Unique([]string{"c", "a", "b", "a", "c"}))
	assert.Empty(t, Unique(nil))
}

func TestUnionOrdered(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, UnionOrdered([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, []string{"x"}, UnionOrdered(nil, []string{"x"}))
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, []string{"b"}, Intersect([]string{"a", "b"}, []string{"b", "c"}))
	assert.Empty(t, Intersect([]string{"a"}, []string{"b"}))
}
