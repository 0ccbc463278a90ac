package stagedi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagedi/stagedi/lifecycle"
)

func TestLocatorFindFallsBackToParent(t *testing.T) {
	t.Parallel()
	key := NewKey(TagFor[widget]())
	tmp1B, tmp1E := NewInstance(key, widget{Name: "parent"}, BindingTags{})
	tmp1 := bindingOrFail(t, tmp1B, tmp1E)
	parentMod := NewModule(tmp1)
	inj := NewInjector(parentMod, Activation{})
	parentLoc, err := inj.Produce(context.Background(), key)
	require.NoError(t, err)

	childInj := NewInjector(NewModule(), Activation{})
	child, err := childInj.CreateSubcontext(context.Background(), parentLoc, NewModule(), nil, Activation{})
	require.NoError(t, err)

	v, ok := child.Find(key)
	require.True(t, ok)
	assert.Equal(t, widget{Name: "parent"}, v)
	assert.True(t, child.Has(key))
}

func TestLocatorGetSetMergesParentAndChildCollections(t *testing.T) {
	t.Parallel()
	tag := TagFor[widget]()
	collectionKey := SetKey(tag, "", false)

	tmp2B, tmp2E := NewInstance(NewKey(tag), widget{Name: "p"}, BindingTags{})
	tmp2 := bindingOrFail(t, tmp2B, tmp2E)
	tmp2ElemB, tmp2ElemE := NewSetElement(NewKey(tag), tmp2, false, BindingTags{})
	parentElem := bindingOrFail(t, tmp2ElemB, tmp2ElemE)
	parentMod := NewModule(parentElem)
	parentInj := NewInjector(parentMod, Activation{})
	parentLoc, err := parentInj.Produce(context.Background(), collectionKey)
	require.NoError(t, err)

	tmp3B, tmp3E := NewInstance(NewKey(tag), widget{Name: "c"}, BindingTags{})
	tmp3 := bindingOrFail(t, tmp3B, tmp3E)
	tmp3ElemB, tmp3ElemE := NewSetElement(NewKey(tag), tmp3, false, BindingTags{})
	childElem := bindingOrFail(t, tmp3ElemB, tmp3ElemE)
	childMod := NewModule(childElem)
	childInj := NewInjector(NewModule(), Activation{})
	child, err := childInj.CreateSubcontext(context.Background(), parentLoc, childMod, []Key{collectionKey}, Activation{})
	require.NoError(t, err)

	vals := child.GetSet(tag, "", false)
	assert.Len(t, vals, 2)
}

func TestLocatorGetSetDedupsReferenceTypedElementsByIdentity(t *testing.T) {
	t.Parallel()
	tag := TagFor[*widget]()
	collectionKey := SetKey(tag, "", false)
	shared := &widget{Name: "shared"}

	tmp4B, tmp4E := NewInstance(NewKey(tag), shared, BindingTags{})
	tmp4 := bindingOrFail(t, tmp4B, tmp4E)
	tmp4ElemB, tmp4ElemE := NewSetElement(NewKey(tag), tmp4, false, BindingTags{})
	parentElem := bindingOrFail(t, tmp4ElemB, tmp4ElemE)
	parentMod := NewModule(parentElem)
	parentInj := NewInjector(parentMod, Activation{})
	parentLoc, err := parentInj.Produce(context.Background(), collectionKey)
	require.NoError(t, err)

	// The child binds the very same *widget from a separate set-element
	// binding: still one logical instance, so the merge must collapse it
	// to one slot.
	tmp5B, tmp5E := NewInstance(NewKey(tag), shared, BindingTags{})
	tmp5 := bindingOrFail(t, tmp5B, tmp5E)
	tmp5ElemB, tmp5ElemE := NewSetElement(NewKey(tag), tmp5, false, BindingTags{})
	childElem := bindingOrFail(t, tmp5ElemB, tmp5ElemE)
	childMod := NewModule(childElem)
	childInj := NewInjector(NewModule(), Activation{})
	child, err := childInj.CreateSubcontext(context.Background(), parentLoc, childMod, []Key{collectionKey}, Activation{})
	require.NoError(t, err)

	vals := child.GetSet(tag, "", false)
	require.Len(t, vals, 1, "the same pointer reaching the merge from both sides must dedup to a single slot")
	assert.Same(t, shared, vals[0])
}

func TestLocatorGetSetNeverDedupsValueTypedElements(t *testing.T) {
	t.Parallel()
	tag := TagFor[widget]()
	collectionKey := SetKey(tag, "", false)

	tmp6B, tmp6E := NewInstance(NewKey(tag), widget{Name: "same"}, BindingTags{})
	tmp6 := bindingOrFail(t, tmp6B, tmp6E)
	tmp6ElemB, tmp6ElemE := NewSetElement(NewKey(tag), tmp6, false, BindingTags{})
	parentElem := bindingOrFail(t, tmp6ElemB, tmp6ElemE)
	parentMod := NewModule(parentElem)
	parentInj := NewInjector(parentMod, Activation{})
	parentLoc, err := parentInj.Produce(context.Background(), collectionKey)
	require.NoError(t, err)

	// Equal-valued, not the same reference: both sides must survive the
	// merge even though they compare == under Go's struct equality.
	tmp7B, tmp7E := NewInstance(NewKey(tag), widget{Name: "same"}, BindingTags{})
	tmp7 := bindingOrFail(t, tmp7B, tmp7E)
	tmp7ElemB, tmp7ElemE := NewSetElement(NewKey(tag), tmp7, false, BindingTags{})
	childElem := bindingOrFail(t, tmp7ElemB, tmp7ElemE)
	childMod := NewModule(childElem)
	childInj := NewInjector(NewModule(), Activation{})
	child, err := childInj.CreateSubcontext(context.Background(), parentLoc, childMod, []Key{collectionKey}, Activation{})
	require.NoError(t, err)

	vals := child.GetSet(tag, "", false)
	assert.Len(t, vals, 2, "value-typed elements must never be deduplicated, even when equal")
}

func TestLocatorCloseOnlyReleasesOwnResources(t *testing.T) {
	t.Parallel()
	var parentClosed, childClosed bool

	parentKey := NewKey(TagFor[int]())
	parentCtor, err := FromCallable(func(r *lifecycle.Registrar) (int, error) {
		r.On(func(context.Context) error {
			parentClosed = true
			return nil
		})
		return 1, nil
	}, []Key{RegistrarKey()})
	require.NoError(t, err)
	tmp8B, tmp8E := NewClass(parentKey, parentCtor, BindingTags{})
	tmp8 := bindingOrFail(t, tmp8B, tmp8E)
	parentBinding := tmp8
	parentInj := NewInjector(NewModule(parentBinding), Activation{})
	parentLoc, err := parentInj.Produce(context.Background(), parentKey)
	require.NoError(t, err)

	childKey := NewKey(TagFor[string]())
	childCtor, err := FromCallable(func(r *lifecycle.Registrar) (string, error) {
		r.On(func(context.Context) error {
			childClosed = true
			return nil
		})
		return "ok", nil
	}, []Key{RegistrarKey()})
	require.NoError(t, err)
	tmp9B, tmp9E := NewClass(childKey, childCtor, BindingTags{})
	tmp9 := bindingOrFail(t, tmp9B, tmp9E)
	childBinding := tmp9
	childInj := NewInjector(NewModule(), Activation{})
	child, err := childInj.CreateSubcontext(context.Background(), parentLoc, NewModule(childBinding), []Key{childKey}, Activation{})
	require.NoError(t, err)

	require.NoError(t, child.Close(context.Background()))
	assert.True(t, childClosed)
	assert.False(t, parentClosed, "closing a child Locator must not release the parent's resources")
}
