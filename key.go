package stagedi

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// PrimitiveKind enumerates the built-in scalar kinds a TypeTag may denote.
type PrimitiveKind uint8

const (
	PrimInt PrimitiveKind = iota
	PrimFloat
	PrimString
	PrimBool
	PrimBigInt
	PrimSymbol
)

func (p PrimitiveKind) String() string {
	switch p {
	case PrimInt:
		return "int"
	case PrimFloat:
		return "float"
	case PrimString:
		return "string"
	case PrimBool:
		return "bool"
	case PrimBigInt:
		return "bigint"
	case PrimSymbol:
		return "symbol"
	default:
		return "unknown-primitive"
	}
}

type tagKind uint8

const (
	kindNominal tagKind = iota
	kindToken
	kindPrimitive
)

var tokenCounter int64
var tokenLock sync.Mutex
var tokenNames = make(map[int64]string)

// TypeTag is an opaque, comparable identifier for a type.  It is one of:
// nominal (a concrete or abstract user-defined type), token (an opaque
// process-unique symbol), primitive (a built-in scalar kind), or set-of(T)
// (a collection wrapping another TypeTag).  Equality is structural:
// set-of(a) == set-of(b) iff a == b, and a tag wrapped twice differs from
// the same tag wrapped once.  setDepth -- not a recursive pointer --
// carries the wrapping count, so TypeTag is a plain comparable struct that
// can be used directly as a map key.
type TypeTag struct {
	kind     tagKind
	setDepth int
	typ      reflect.Type
	token    int64
	prim     PrimitiveKind
}

// TagFor returns the nominal TypeTag for T.
func TagFor[T any]() TypeTag {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	return TypeTag{kind: kindNominal, typ: t}
}

// TagForType returns the nominal TypeTag for an explicit reflect.Type.  It
// is the escape hatch for registry-driven construction (see package
// registry) where the type is only known at runtime.
func TagForType(t reflect.Type) TypeTag {
	if t == nil {
		panic("stagedi: TagForType called with nil reflect.Type")
	}
	return TypeTag{kind: kindNominal, typ: t}
}

// NewToken allocates a fresh, process-unique token TypeTag.  Tokens are
// used where the type system cannot distinguish interfaces (e.g. two
// bindings both returning an interface{} payload that must be kept
// distinct).  name is cosmetic; it appears in debug output only.
func NewToken(name string) TypeTag {
	id := atomic.AddInt64(&tokenCounter, 1)
	tokenLock.Lock()
	tokenNames[id] = name
	tokenLock.Unlock()
	return TypeTag{kind: kindToken, token: id}
}

// PrimitiveTag returns the TypeTag for one of the built-in scalar kinds.
func PrimitiveTag(p PrimitiveKind) TypeTag {
	return TypeTag{kind: kindPrimitive, prim: p}
}

// SetOf wraps t to denote a collection binding for t.
func SetOf(t TypeTag) TypeTag {
	t.setDepth++
	return t
}

// IsSet reports whether tag denotes a set-of(...) collection.
func (t TypeTag) IsSet() bool { return t.setDepth > 0 }

// Elem unwraps one layer of set-of(...). It panics if t is not a set.
func (t TypeTag) Elem() TypeTag {
	if t.setDepth == 0 {
		panic("stagedi: Elem called on a non-set TypeTag")
	}
	t.setDepth--
	return t
}

// Key is the (TypeTag, id?) pair by which Bindings are looked up.  Two Keys
// are equal iff their TypeTags and ids are equal.  Key is comparable and
// may be used directly as a map key.
type Key struct {
	Tag   TypeTag
	id    string
	hasID bool
}

// NewKey returns the unnamed Key for tag.
func NewKey(tag TypeTag) Key {
	return Key{Tag: tag}
}

// NewNamedKey returns the Key for tag disambiguated by id.
func NewNamedKey(tag TypeTag, id string) Key {
	return Key{Tag: tag, id: id, hasID: true}
}

// ID returns the disambiguating id, if any.
func (k Key) ID() (string, bool) {
	return k.id, k.hasID
}

// SetKey returns the collection Key that a set-element binding for tag
// (optionally disambiguated by id) contributes to.
func SetKey(tag TypeTag, id string, hasID bool) Key {
	if hasID {
		return NewNamedKey(SetOf(tag), id)
	}
	return NewKey(SetOf(tag))
}

// ElementKeyOf returns the Key a set-element's inner binding is indexed
// under: the same id, with one layer of set-of(...) removed from the tag.
func (k Key) ElementKeyOf() Key {
	if !k.Tag.IsSet() {
		panic("stagedi: ElementKeyOf called on a non-collection Key")
	}
	return Key{Tag: k.Tag.Elem(), id: k.id, hasID: k.hasID}
}
