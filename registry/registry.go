// Package registry is a process-lexical side table of constructor
// metadata: given a Go type, what Keys does building it need, and which
// function builds it. It exists so that a Class binding can be declared
// by type alone (registry.FunctoidFromType) rather than spelling out a
// dependency list by hand at every call site. Register takes an explicit
// dependency list; RegisterByFields derives one by walking a constructor's
// parameter struct for fields tagged with the dependency's disambiguating
// id, the way nvelope's request decoder walks a handler's model struct for
// its own tag.
package registry

import (
	"reflect"
	"sync"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"

	"github.com/stagedi/stagedi"
)

// StructTag is the struct tag RegisterByFields looks for on a constructor's
// parameter struct. A field carrying this tag becomes a dependency; the
// tag's value, if non-empty, disambiguates it by id (stagedi.NewNamedKey).
// A field with the tag present but empty is an unnamed dependency on its
// field type. Fields without the tag are ignored -- they are not filled by
// the registry and must be left at their zero value by the caller.
const StructTag = "stagedi"

// Entry is the metadata registered for one type: the constructor function
// and, in positional order, the Keys its parameters are resolved from.
type Entry struct {
	Type         reflect.Type
	Constructor  any
	Dependencies []stagedi.Key
}

// Registry is a thread-safe type -> Entry side table. The zero value is
// not usable; construct one with New.
type Registry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[reflect.Type]Entry)}
}

// Register records how to build a value of type t. It is an error to
// register the same type twice; registries are meant to be populated once,
// at process init, not mutated at request time.
func (r *Registry) Register(t reflect.Type, constructor any, deps []stagedi.Key) error {
	if t == nil {
		return errors.New("stagedi/registry: type must not be nil")
	}
	v := reflect.ValueOf(constructor)
	if constructor == nil || v.Kind() != reflect.Func {
		return errors.Errorf("stagedi/registry: constructor for %v must be a function", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[t]; exists {
		return &AlreadyRegisteredError{Type: t}
	}
	depsCopy := make([]stagedi.Key, len(deps))
	copy(depsCopy, deps)
	r.entries[t] = Entry{Type: t, Constructor: constructor, Dependencies: depsCopy}
	return nil
}

// RegisterByFields registers the type constructor returns, deriving its
// dependency list from constructor's single struct parameter instead of
// requiring the caller to spell deps out: every field of that struct
// tagged with StructTag becomes one positional dependency, walked (via
// reflectutils.WalkStructElements, so embedded fields are included) in
// struct field order. constructor must be a func(S) T or func(S) (T,
// error) where S is a struct type (not a pointer).
func (r *Registry) RegisterByFields(constructor any) error {
	v := reflect.ValueOf(constructor)
	if constructor == nil || v.Kind() != reflect.Func {
		return errors.New("stagedi/registry: constructor must be a function")
	}
	ft := v.Type()
	if ft.NumIn() != 1 {
		return errors.New("stagedi/registry: RegisterByFields requires a constructor with exactly one parameter")
	}
	paramType := ft.In(0)
	if paramType.Kind() != reflect.Struct {
		return errors.Errorf("stagedi/registry: constructor parameter %v must be a struct", paramType)
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if !ft.Out(1).Implements(errType) {
			return errors.New("stagedi/registry: constructor's second return value must be error")
		}
	default:
		return errors.New("stagedi/registry: constructor must return exactly one value, or a value and an error")
	}
	outType := ft.Out(0)

	var fields []reflect.StructField
	var deps []stagedi.Key
	reflectutils.WalkStructElements(paramType, func(field reflect.StructField) bool {
		tag, ok := field.Tag.Lookup(StructTag)
		if !ok {
			return true
		}
		tagTy := stagedi.TagForType(field.Type)
		var key stagedi.Key
		if tag == "" {
			key = stagedi.NewKey(tagTy)
		} else {
			key = stagedi.NewNamedKey(tagTy, tag)
		}
		fields = append(fields, field)
		deps = append(deps, key)
		return true
	})

	adapter := reflect.MakeFunc(
		reflect.FuncOf(fieldTypes(fields), []reflect.Type{outType, errType}, false),
		func(args []reflect.Value) []reflect.Value {
			param := reflect.New(paramType).Elem()
			for i, field := range fields {
				param.FieldByIndex(field.Index).Set(args[i])
			}
			out := v.Call([]reflect.Value{param})
			if len(out) == 2 {
				if err, ok := out[1].Interface().(error); ok && err != nil {
					return []reflect.Value{reflect.Zero(outType), out[1]}
				}
			}
			return []reflect.Value{out[0], reflect.Zero(errType)}
		},
	)
	return r.Register(outType, adapter.Interface(), deps)
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func fieldTypes(fields []reflect.StructField) []reflect.Type {
	out := make([]reflect.Type, len(fields))
	for i, f := range fields {
		out[i] = f.Type
	}
	return out
}

// Lookup returns the Entry registered for t.
func (r *Registry) Lookup(t reflect.Type) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[t]
	if !ok {
		return Entry{}, &NotRegisteredError{Type: t}
	}
	return e, nil
}

// Has reports whether t has been registered.
func (r *Registry) Has(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[t]
	return ok
}

// FunctoidFromType looks t up and builds the Functoid its registered
// constructor and dependency list describe, saving callers from repeating
// the dependency list stagedi.FromCallable would otherwise require.
func (r *Registry) FunctoidFromType(t reflect.Type) (stagedi.Functoid, error) {
	e, err := r.Lookup(t)
	if err != nil {
		return stagedi.Functoid{}, err
	}
	return stagedi.FromCallable(e.Constructor, e.Dependencies)
}

// AlreadyRegisteredError is returned by Register for a duplicate type.
type AlreadyRegisteredError struct{ Type reflect.Type }

func (e *AlreadyRegisteredError) Error() string {
	return "stagedi/registry: " + e.Type.String() + " is already registered"
}

// NotRegisteredError is returned by Lookup for an unknown type.
type NotRegisteredError struct{ Type reflect.Type }

func (e *NotRegisteredError) Error() string {
	return "stagedi/registry: " + e.Type.String() + " is not registered"
}
