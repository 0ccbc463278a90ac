package stagedi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ Name string }

func TestTagForIsStable(t *testing.T) {
	t.Parallel()
	a := TagFor[widget]()
	b := TagFor[widget]()
	assert.Equal(t, a, b)
}

func TestSetOfRoundTrips(t *testing.T) {
	t.Parallel()
	base := TagFor[widget]()
	set := SetOf(base)
	assert.True(t, set.IsSet())
	assert.False(t, base.IsSet())
	assert.Equal(t, base, set.Elem())
}

func TestSetOfNestingIsDistinctByDepth(t *testing.T) {
	t.Parallel()
	base := TagFor[widget]()
	once := SetOf(base)
	twice := SetOf(once)
	assert.NotEqual(t, once, twice)
	assert.Equal(t, once, twice.Elem())
}

func TestNewTokenIsProcessUnique(t *testing.T) {
	t.Parallel()
	a := NewToken("handle")
	b := NewToken("handle")
	assert.NotEqual(t, a, b, "two tokens with the same cosmetic name must still be distinct")
}

func TestKeyEqualityIncludesID(t *testing.T) {
	t.Parallel()
	tag := TagFor[widget]()
	plain := NewKey(tag)
	named := NewNamedKey(tag, "primary")
	assert.NotEqual(t, plain, named)

	id, hasID := named.ID()
	assert.True(t, hasID)
	assert.Equal(t, "primary", id)

	_, hasID = plain.ID()
	assert.False(t, hasID)
}

func TestElementKeyOfUnwrapsOneSetLayer(t *testing.T) {
	t.Parallel()
	tag := TagFor[widget]()
	collection := SetKey(tag, "group", true)
	elem := collection.ElementKeyOf()
	assert.Equal(t, NewNamedKey(tag, "group"), elem)
}

func TestElementKeyOfPanicsOnNonSetKey(t *testing.T) {
	t.Parallel()
	key := NewKey(TagFor[widget]())
	require.Panics(t, func() { key.ElementKeyOf() })
}

func TestPrimitiveTagIsDistinctPerKind(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, PrimitiveTag(PrimInt), PrimitiveTag(PrimString))
	assert.Equal(t, PrimitiveTag(PrimInt), PrimitiveTag(PrimInt))
	assert.NotEqual(t, PrimitiveTag(PrimInt), TagFor[int](),
		"a primitive TypeTag must not collide with the nominal TypeTag for the same Go type")
}
