package values

import "testing"

import "github.com/stretchr/testify/require"

func TestValueEqualityCrossVariant(t *testing.T) {
	require.True(t, Int(2).Equal(Float(2.0)))
	require.False(t, Int(2).Equal(Text("2")))
	require.False(t, Bool(true).Equal(Int(1)))
	require.True(t, Null().Equal(Null()))
}

func TestValueOrderTotal(t *testing.T) {
	ordered := []Value{Null(), Bool(false), Bool(true), Int(1), Float(2.5), Text("a"), Text("b")}
	for i := 0; i < len(ordered)-1; i++ {
		require.LessOrEqual(t, ordered[i].Compare(ordered[i+1]), 0, "index %d", i)
	}
}

func TestPropertiesMergePreservesUntouched(t *testing.T) {
	base := Properties{"name": Text("Alice"), "age": Int(30)}
	patch := Properties{"age": Int(31)}
	merged := base.Merge(patch)

	require.True(t, merged["name"].Equal(Text("Alice")))
	require.True(t, merged["age"].Equal(Int(31)))
	require.True(t, base["age"].Equal(Int(30)), "original map must be untouched")
}

func TestPropertiesEqualIgnoresOrder(t *testing.T) {
	a := Properties{"x": Int(1), "y": Text("z")}
	b := Properties{"y": Text("z"), "x": Int(1)}
	require.True(t, a.Equal(b))
}
