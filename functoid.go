package stagedi

import (
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Functoid bundles a callable with the ordered list of dependency Keys it
// expects as positional arguments (one per parameter), plus whether the
// Producer should treat it as capable of running concurrently with its
// independent siblings (see Producer's asynchronous mode). There
// is no native future/promise type in Go: an "async" Functoid is simply
// one the Producer is free to invoke on its own goroutine, fanning its
// result back in once it (and every other ready step) completes.
type Functoid struct {
	fn      reflect.Value
	fnType  reflect.Type
	deps    []Key
	isAsync bool
}

// FromCallable builds the canonical Functoid form: fn is any function, and
// deps names, in positional order, the Key each of fn's parameters is
// resolved from.  fn must return exactly one value, or two values where
// the second is error. callable.arity must equal len(deps).
func FromCallable(fn any, deps []Key) (Functoid, error) {
	return newFunctoid(fn, deps, false)
}

// FromTypes is sugar over FromCallable for the common case where none of
// fn's dependencies need to be disambiguated by id.
func FromTypes(fn any, tags ...TypeTag) (Functoid, error) {
	deps := make([]Key, len(tags))
	for i, t := range tags {
		deps[i] = NewKey(t)
	}
	return FromCallable(fn, deps)
}

// AsyncFromCallable is FromCallable, but marks the Functoid as eligible
// for concurrent scheduling in Producer's asynchronous mode.
func AsyncFromCallable(fn any, deps []Key) (Functoid, error) {
	return newFunctoid(fn, deps, true)
}

// Constant returns a zero-dependency Functoid whose invocation always
// returns value.
func Constant(value any) Functoid {
	fn := reflect.ValueOf(func() any { return value })
	return Functoid{fn: fn, fnType: fn.Type(), deps: nil}
}

func newFunctoid(fn any, deps []Key, async bool) (Functoid, error) {
	if fn == nil {
		return Functoid{}, &FunctoidConstructionError{Reason: "callable is nil"}
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return Functoid{}, &FunctoidConstructionError{Reason: "callable is not a function"}
	}
	if t.IsVariadic() {
		return Functoid{}, &FunctoidConstructionError{Reason: "callable must not be variadic"}
	}
	if t.NumIn() != len(deps) {
		return Functoid{}, &FunctoidConstructionError{
			Reason: "callable arity does not match the number of declared dependencies",
		}
	}
	switch t.NumOut() {
	case 1:
	case 2:
		if !t.Out(1).Implements(errorType) {
			return Functoid{}, &FunctoidConstructionError{
				Reason: "callable's second return value must be error",
			}
		}
	default:
		return Functoid{}, &FunctoidConstructionError{
			Reason: "callable must return exactly one value, or a value and an error",
		}
	}
	d := make([]Key, len(deps))
	copy(d, deps)
	return Functoid{fn: v, fnType: t, deps: d, isAsync: async}, nil
}

// Dependencies returns the ordered list of Keys this Functoid's parameters
// are resolved from.
func (f Functoid) Dependencies() []Key {
	out := make([]Key, len(f.deps))
	copy(out, f.deps)
	return out
}

// IsAsync reports whether the Producer should schedule this Functoid
// concurrently with its independent siblings.
func (f Functoid) IsAsync() bool { return f.isAsync }

// Invoke calls the callable with args (already resolved in dependency
// order) and returns its (possibly error-producing) result.
func (f Functoid) Invoke(args []any) (any, error) {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(f.fnType.In(i))
			continue
		}
		in[i] = reflect.ValueOf(a)
	}
	out := f.fn.Call(in)
	if len(out) == 2 {
		var err error
		if e, ok := out[1].Interface().(error); ok {
			err = e
		}
		if err != nil {
			return nil, err
		}
	}
	return out[0].Interface(), nil
}

// Map returns a new Functoid with the same dependencies and async-ness as
// f, but whose result is passed through wrap before being handed to
// callers. It is used to adapt a Functoid's produced value without
// re-declaring its dependency list.
func (f Functoid) Map(wrap func(any) (any, error)) Functoid {
	deps := f.Dependencies()
	inner := f
	fn := reflect.MakeFunc(
		reflect.FuncOf(argTypes(inner.fnType), []reflect.Type{anyType, errorType}, false),
		func(args []reflect.Value) []reflect.Value {
			raw := make([]any, len(args))
			for i, a := range args {
				raw[i] = a.Interface()
			}
			v, err := inner.Invoke(raw)
			if err != nil {
				return []reflect.Value{reflect.Zero(anyType), reflect.ValueOf(&err).Elem()}
			}
			wrapped, werr := wrap(v)
			if werr != nil {
				return []reflect.Value{reflect.Zero(anyType), reflect.ValueOf(&werr).Elem()}
			}
			return []reflect.Value{reflect.ValueOf(&wrapped).Elem(), reflect.Zero(errorType)}
		},
	)
	return Functoid{fn: fn, fnType: fn.Type(), deps: deps, isAsync: f.isAsync}
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func argTypes(t reflect.Type) []reflect.Type {
	out := make([]reflect.Type, t.NumIn())
	for i := range out {
		out[i] = t.In(i)
	}
	return out
}
