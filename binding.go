package stagedi

import (
	"fmt"

	"github.com/pkg/errors"
)

// BindingKind discriminates the six Binding variants. Planner
// and Producer both switch over Kind exhaustively.
type BindingKind uint8

const (
	KindInstance BindingKind = iota
	KindClass
	KindFactory
	KindAlias
	KindSetElement
	KindAssistedFactory
)

func (k BindingKind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindClass:
		return "class"
	case KindFactory:
		return "factory"
	case KindAlias:
		return "alias"
	case KindSetElement:
		return "set-element"
	case KindAssistedFactory:
		return "assisted-factory"
	default:
		return "unknown"
	}
}

// Binding is one declaration of how to produce a value for a Key. It is a
// tagged union over BindingKind; only the fields relevant to Kind are
// populated, which keeps Planner and Producer's switch statements
// exhaustive and centrally located rather than spread across six
// separate Go types.
type Binding struct {
	kind BindingKind
	key  Key
	tags BindingTags

	instance any // KindInstance

	functoid Functoid // KindClass, KindFactory, KindAssistedFactory

	target Key // KindAlias

	inner *Binding // KindSetElement: the wrapped Instance/Class/Factory binding
	weak  bool     // KindSetElement

	runtimeParams []string // KindAssistedFactory: cosmetic names for the leading runtime args
}

// Key returns the Key this binding is indexed under.
func (b Binding) Key() Key { return b.key }

// Kind returns the binding's variant.
func (b Binding) Kind() BindingKind { return b.kind }

// Tags returns the binding's BindingTags.
func (b Binding) Tags() BindingTags { return b.tags }

func (b Binding) String() string {
	return fmt.Sprintf("%s(%s)", b.kind, b.key)
}

// NewInstance binds key to a pre-built value: an identity binding with no
// dependencies.
func NewInstance(key Key, value any, tags BindingTags) (Binding, error) {
	if key.Tag.IsSet() {
		return Binding{}, errors.Errorf("stagedi: %s is a collection key; use NewSetElement instead", key)
	}
	return Binding{kind: KindInstance, key: key, tags: tags, instance: value}, nil
}

// NewClass binds key to be constructed via f, DI'ing f's declared
// dependencies. The produced value is a singleton per Locator.
func NewClass(key Key, f Functoid, tags BindingTags) (Binding, error) {
	if key.Tag.IsSet() {
		return Binding{}, errors.Errorf("stagedi: %s is a collection key; use NewSetElement instead", key)
	}
	return Binding{kind: KindClass, key: key, tags: tags, functoid: f}, nil
}

// NewFactory binds key to be produced by invoking f (which may be async).
// Unlike NewClass there is no implication that f constructs "the" class
// for key's type -- the distinction is purely documentary, both variants
// are executed identically by the Producer.
func NewFactory(key Key, f Functoid, tags BindingTags) (Binding, error) {
	if key.Tag.IsSet() {
		return Binding{}, errors.Errorf("stagedi: %s is a collection key; use NewSetElement instead", key)
	}
	return Binding{kind: KindFactory, key: key, tags: tags, functoid: f}, nil
}

// NewAlias binds key to resolve to whatever value target resolves to.
// Alias chains must eventually reach a non-Alias binding; a chain that
// loops back on itself is reported as CircularDependencyError at planning
// time.
func NewAlias(key Key, target Key, tags BindingTags) (Binding, error) {
	if key.Tag.IsSet() {
		return Binding{}, errors.Errorf("stagedi: %s is a collection key; use NewSetElement instead", key)
	}
	return Binding{kind: KindAlias, key: key, tags: tags, target: target}, nil
}

// NewSetElement contributes one value to the collection keyed by
// set-of(elementKey.Tag) (with elementKey's id). inner must be an
// Instance, Class, or Factory binding; its own Key is used only for
// dependency discovery and debug traces -- it is not separately indexed.
// If weak is true, the Planner silently drops this element (rather than
// failing the whole Plan) when inner's own dependencies cannot be
// resolved.
func NewSetElement(elementKey Key, inner Binding, weak bool, tags BindingTags) (Binding, error) {
	switch inner.kind {
	case KindInstance, KindClass, KindFactory:
	default:
		return Binding{}, errors.Errorf("stagedi: set-element inner binding must be instance, class, or factory, got %s", inner.kind)
	}
	if inner.key != elementKey {
		inner.key = elementKey
	}
	collectionKey := SetKey(elementKey.Tag, elementKey.id, elementKey.hasID)
	innerCopy := inner
	return Binding{
		kind:  KindSetElement,
		key:   collectionKey,
		tags:  tags,
		inner: &innerCopy,
		weak:  weak,
	}, nil
}

// NewAssistedFactory binds key to a curried factory: when produced, the
// "instance" for key is a closure that takes the runtime arguments named
// by runtimeParams (the names are informational only; their count decides
// how many of f's leading parameters are runtime arguments) and, on every
// call, freshly resolves f's trailing
// dependency-injected parameters against the Locator before invoking f.
// The leading runtimeParams are supplied by the caller on each invocation
// and are never planned; the trailing DI'd parameters are ordinary Plan
// dependencies so they are guaranteed to be in the Locator by the time the
// closure is first called.
func NewAssistedFactory(key Key, f Functoid, runtimeParams []string, tags BindingTags) (Binding, error) {
	if key.Tag.IsSet() {
		return Binding{}, errors.Errorf("stagedi: %s is a collection key; use NewSetElement instead", key)
	}
	if len(runtimeParams) > len(f.deps) {
		return Binding{}, &FunctoidConstructionError{Reason: "more runtime parameters than functoid arguments"}
	}
	params := make([]string, len(runtimeParams))
	copy(params, runtimeParams)
	return Binding{kind: KindAssistedFactory, key: key, tags: tags, functoid: f, runtimeParams: params}, nil
}

// dependencies returns the Keys this binding needs resolved before it can
// be constructed. Set-element bindings return their inner binding's
// dependencies. AssistedFactory bindings return only the trailing DI'd
// arguments -- the leading runtimeParams come from the caller, not the
// Locator, so the Plan must not require them, but the tail arguments must
// still be produced into the Locator or resolveLocal would never find them
// when the closure is later invoked.
func (b Binding) dependencies() []Key {
	switch b.kind {
	case KindInstance:
		return nil
	case KindClass, KindFactory:
		return b.functoid.Dependencies()
	case KindAlias:
		return []Key{b.target}
	case KindSetElement:
		return b.inner.dependencies()
	case KindAssistedFactory:
		all := b.functoid.Dependencies()
		if len(b.runtimeParams) >= len(all) {
			return nil
		}
		return all[len(b.runtimeParams):]
	default:
		return nil
	}
}
