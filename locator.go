package stagedi

import (
	"context"
	"reflect"

	"github.com/pkg/errors"

	"github.com/stagedi/stagedi/lifecycle"
)

// registrarTag is the well-known TypeTag a Functoid declares a dependency
// on to receive its Locator's *lifecycle.Registrar. It is resolved by the
// Producer directly, without a Module binding, so any provider can ask
// for it without the Module needing to wire it explicitly.
var registrarTag = TagFor[*lifecycle.Registrar]()

// RegistrarKey is the Key a Functoid lists in its dependencies to have a
// *lifecycle.Registrar resolved for the Locator currently being built.
func RegistrarKey() Key { return NewKey(registrarTag) }

// Locator is the immutable-after-construction instance store a Producer
// returns. It supports hierarchical lookup: a Locator built with a parent
// falls back to that parent for Keys it does not itself bind, and merges
// collection values across the chain. Subcontext is an alias for Locator:
// a subcontext is itself a Locator, trivially, because CreateSubcontext
// returns exactly this type.
type Locator struct {
	parent    *Locator
	instances map[Key]any
	sets      map[Key][]any
	registrar *lifecycle.Registrar
}

// Subcontext is the type CreateSubcontext returns: a Locator composing a
// parent Locator with a child Plan's produced instances.
type Subcontext = Locator

func newLocator(parent *Locator) *Locator {
	return &Locator{
		parent:    parent,
		instances: make(map[Key]any),
		sets:      make(map[Key][]any),
		registrar: lifecycle.NewRegistrar(),
	}
}

// Get returns the value bound to key, falling back to the parent Locator
// if this Locator does not itself bind key.
func (l *Locator) Get(key Key) (any, error) {
	if v, ok := l.Find(key); ok {
		return v, nil
	}
	return nil, &InstanceNotFoundError{Key: key}
}

// Find is Get without the error: ok is false if key is unbound anywhere in
// the Locator chain.
func (l *Locator) Find(key Key) (any, bool) {
	if v, ok := l.instances[key]; ok {
		return v, true
	}
	if l.parent != nil {
		return l.parent.Find(key)
	}
	return nil, false
}

// Has reports whether key is bound anywhere in the Locator chain,
// including collection Keys with zero surviving elements -- has is the
// disjunction across the whole parent chain, not just this Locator.
func (l *Locator) Has(key Key) bool {
	if _, ok := l.instances[key]; ok {
		return true
	}
	if _, ok := l.sets[key]; ok {
		return true
	}
	if l.parent != nil {
		return l.parent.Has(key)
	}
	return false
}

// GetSet returns the collection bound at set-of(tag) (disambiguated by id
// if hasID), merging this Locator's elements with its parent's into the
// union of both. Reference-typed elements are deduplicated by identity
// across the merge; value-typed elements are never deduplicated.
func (l *Locator) GetSet(tag TypeTag, id string, hasID bool) []any {
	key := SetKey(tag, id, hasID)
	var parentVals []any
	if l.parent != nil {
		parentVals = l.parent.GetSet(tag, id, hasID)
	}
	own := l.sets[key]
	return mergeSetValues(parentVals, own)
}

func mergeSetValues(parentVals, ownVals []any) []any {
	out := make([]any, 0, len(parentVals)+len(ownVals))
	out = append(out, parentVals...)
	for _, v := range ownVals {
		if containsIdentity(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsIdentity(list []any, v any) bool {
	if !isReferenceTyped(v) {
		return false
	}
	for _, e := range list {
		if isReferenceTyped(e) && e == v {
			return true
		}
	}
	return false
}

// isReferenceTyped reports whether v's dynamic type is a pointer -- the
// only shape dedup applies to. A value boxed in an any always reports its
// concrete dynamic type via reflect.TypeOf, so an interface-typed Key
// bound to a pointer value is caught here too; a plain struct or scalar
// is never deduplicated even when it happens to be == comparable.
func isReferenceTyped(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Ptr
}

// Keys returns this Locator's own bound Keys (not its parent's). It is
// intended for debugging and introspection.
func (l *Locator) Keys() []Key {
	out := make([]Key, 0, len(l.instances)+len(l.sets))
	for k := range l.instances {
		out = append(out, k)
	}
	for k := range l.sets {
		out = append(out, k)
	}
	return out
}

// Close releases this Locator's own lifecycle-managed resources in LIFO
// order; the parent is unaffected. Release is attempted for every
// registered cleanup regardless of earlier failures; all errors are
// collected into an AggregateCleanupError.
func (l *Locator) Close(ctx context.Context) error {
	if errs := l.registrar.Close(ctx); len(errs) > 0 {
		return &AggregateCleanupError{Errors: errs}
	}
	return nil
}

// GetAs is a type-asserting convenience over Get.
func GetAs[T any](l *Locator, key Key) (T, error) {
	var zero T
	v, err := l.Get(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Errorf("stagedi: instance for %s is not assignable to %T", key, zero)
	}
	return t, nil
}

// FindAs is a type-asserting convenience over Find.
func FindAs[T any](l *Locator, key Key) (T, bool) {
	var zero T
	v, ok := l.Find(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
