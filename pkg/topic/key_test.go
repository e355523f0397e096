package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiscardsEmptySections(t *testing.T) {
	k := Parse("a//b/")
	assert.Equal(t, []string{"a", "b"}, k.Names())
}

func TestParseDisplayRoundTrip(t *testing.T) {
	tests := []string{
		"a",
		"a/b/c",
		"sensors/room1/temperature",
		"x/y/z/w",
	}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			k := Parse(s)
			assert.Equal(t, s, k.String())
		})
	}
}

func TestEqualComparesSectionIDs(t *testing.T) {
	a := Parse("a/b/c")
	b := FromNames("a", "b", "c")
	c := Parse("a/b/d")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestAddPrefixRemovePrefixRoundTrip(t *testing.T) {
	k := Parse("c/d")
	p := Parse("a/b")

	withPrefix := k.AddPrefix(p)
	assert.Equal(t, "a/b/c/d", withPrefix.String())

	rest, ok := withPrefix.RemovePrefix(p)
	require.True(t, ok)
	assert.True(t, rest.Equal(k))
}

func TestAddSuffixRemoveSuffixRoundTrip(t *testing.T) {
	k := Parse("a/b")
	s := Parse("c/d")

	withSuffix := k.AddSuffix(s)
	assert.Equal(t, "a/b/c/d", withSuffix.String())

	rest, ok := withSuffix.RemoveSuffix(s)
	require.True(t, ok)
	assert.True(t, rest.Equal(k))
}

func TestIsChildOfIsParentOfSymmetry(t *testing.T) {
	tests := []struct {
		name        string
		child       Key
		parent      Key
		wantIsChild bool
		wantNotEq   bool
	}{
		{"exact child", Parse("a/b/c"), Parse("a/b"), true, true},
		{"equal keys", Parse("a/b"), Parse("a/b"), true, false},
		{"unrelated", Parse("a/b"), Parse("x/y"), false, false},
		{"shorter than parent", Parse("a"), Parse("a/b"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIsChild, tt.child.IsChildOf(tt.parent))
			assert.Equal(t, tt.wantIsChild, tt.parent.IsParentOf(tt.child))
			if tt.wantNotEq {
				assert.False(t, tt.child.Equal(tt.parent))
			}
		})
	}
}

func TestMatchesIsSymmetric(t *testing.T) {
	a := Parse("a/b")
	b := Parse("a/b/c")
	c := Parse("x/y")

	assert.True(t, a.Matches(b))
	assert.True(t, b.Matches(a))
	assert.False(t, a.Matches(c))
	assert.False(t, c.Matches(a))
}

func TestChildAndChildIndex(t *testing.T) {
	k := Parse("list").ChildIndex(3).Child("field")
	assert.Equal(t, "list/3/field", k.String())
}

func TestIDStableAcrossCalls(t *testing.T) {
	a := Parse("sensors/room1/temperature")
	b := Parse("sensors/room1/temperature")
	assert.Equal(t, a.ID(), b.ID())
}

func TestLessProvidesTotalOrder(t *testing.T) {
	keys := []Key{Parse("b"), Parse("a"), Parse("a/c")}
	// Less must be irreflexive and asymmetric for any pair.
	for i := range keys {
		for j := range keys {
			if i == j {
				assert.False(t, keys[i].Less(keys[j]))
				continue
			}
			if keys[i].Less(keys[j]) {
				assert.False(t, keys[j].Less(keys[i]))
			}
		}
	}
}
