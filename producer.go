package stagedi

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
)

// ProduceOptions configures a single Producer.Produce call.
type ProduceOptions struct {
	// Parent, if non-nil, is consulted for any Key the Plan did not itself
	// produce a step for (the Planner already verified such Keys are
	// available from it).
	Parent *Locator
	// Logger receives a Warn call whenever a weak set-element is dropped
	// because its own construction failed. Defaults to NoLogger().
	Logger BasicLogger
}

// Producer executes a Plan, turning each PlanStep into a value held by the
// returned Locator. Producer is stateless between calls: nothing about
// one Produce call affects another.
type Producer struct{}

// NewProducer returns a Producer.
func NewProducer() Producer { return Producer{} }

// Produce runs plan to completion. If any non-set step's Functoid (or any
// element of a set step) is async, Produce schedules the whole Plan with
// the concurrent driver; otherwise it runs the simpler strictly-ordered
// driver. Both drivers produce the same
// observable result for a Plan that contains no async Functoids.
func (Producer) Produce(ctx context.Context, plan Plan, opts ProduceOptions) (*Locator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = NoLogger()
	}
	if planHasAsync(plan) {
		return produceAsync(ctx, plan, opts.Parent, logger)
	}
	return produceSync(ctx, plan, opts.Parent, logger)
}

func planHasAsync(plan Plan) bool {
	for _, step := range plan.Steps {
		if step.IsSet() {
			for _, elem := range step.Elements {
				if elem.inner.kind != KindInstance && elem.inner.functoid.IsAsync() {
					return true
				}
			}
			continue
		}
		if step.Binding.kind != KindInstance && step.Binding.functoid.IsAsync() {
			return true
		}
	}
	return false
}

// produceSync iterates plan.Steps in order -- the Planner already
// guarantees each step's dependencies precede it -- and constructs each
// step's value against the instances built so far.
func produceSync(ctx context.Context, plan Plan, parent *Locator, logger BasicLogger) (*Locator, error) {
	loc := newLocator(parent)
	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "stagedi: producer canceled")
		}
		if step.IsSet() {
			vals, err := constructSet(ctx, loc, step, logger)
			if err != nil {
				return nil, wrapProducerFailure(step.Key, err)
			}
			loc.sets[step.Key] = vals
			continue
		}
		v, err := constructStep(ctx, loc, step.Binding)
		if err != nil {
			return nil, wrapProducerFailure(step.Key, err)
		}
		loc.instances[step.Key] = v
	}
	return loc, nil
}

func constructSet(ctx context.Context, loc *Locator, step PlanStep, logger BasicLogger) ([]any, error) {
	vals := make([]any, 0, len(step.Elements))
	for _, elem := range step.Elements {
		v, err := constructStep(ctx, loc, *elem.inner)
		if err != nil {
			if elem.weak {
				logger.Warn("stagedi: dropping weak set element after construction failure",
					map[string]any{"key": step.Key.String(), "element": elem.inner.key.String(), "error": err.Error()})
				continue
			}
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// constructStep builds the value for one non-set binding. Instance is a
// pure lookup; Class and Factory invoke their Functoid against already-
// resolved dependencies; Alias copies whatever the target Key resolved
// to; AssistedFactory builds its runtime-curried closure.
func constructStep(ctx context.Context, loc *Locator, b Binding) (any, error) {
	switch b.kind {
	case KindInstance:
		return b.instance, nil
	case KindClass, KindFactory:
		return invokeFunctoid(loc, b.functoid)
	case KindAlias:
		v, err := loc.resolveLocal(b.target)
		if err != nil {
			return nil, err
		}
		return v, nil
	case KindAssistedFactory:
		return makeAssistedClosure(loc, b), nil
	default:
		return nil, errors.Errorf("stagedi: unhandled binding kind %s", b.kind)
	}
}

// invokeFunctoid resolves f's declared dependencies against loc (and its
// parent chain) and invokes f.
func invokeFunctoid(loc *Locator, f Functoid) (any, error) {
	deps := f.Dependencies()
	args := make([]any, len(deps))
	for i, d := range deps {
		v, err := loc.resolveLocal(d)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return f.Invoke(args)
}

// resolveLocal looks a Key up against loc: a collection Key resolves to
// its merged []any slice, a plain Key to loc's own instances or its
// parent chain. It is the only way Producer-internal code reads a
// dependency's value, including a Functoid parameter of type []any that
// declares a set-of(...) Key.
func (l *Locator) resolveLocal(key Key) (any, error) {
	if key == RegistrarKey() {
		return l.registrar, nil
	}
	if key.Tag.IsSet() {
		elemTag := key.Tag.Elem()
		id, hasID := key.ID()
		return l.GetSet(elemTag, id, hasID), nil
	}
	if v, ok := l.instances[key]; ok {
		return v, nil
	}
	if l.parent != nil {
		if v, ok := l.parent.Find(key); ok {
			return v, nil
		}
	}
	return nil, &InstanceNotFoundError{Key: key}
}

// makeAssistedClosure builds, via reflect.MakeFunc, the runtime-callable
// value an AssistedFactory binding produces. The closure's parameter list
// is b's Functoid's leading len(b.runtimeParams) argument types; calling
// it resolves the remaining (DI'd) parameters against loc fresh each
// call and invokes the underlying Functoid.
func makeAssistedClosure(loc *Locator, b Binding) any {
	f := b.functoid
	n := len(b.runtimeParams)
	runtimeTypes := make([]reflect.Type, n)
	for i := 0; i < n; i++ {
		runtimeTypes[i] = f.fnType.In(i)
	}
	outType := f.fnType.Out(0)
	closureType := reflect.FuncOf(runtimeTypes, []reflect.Type{outType, errorType}, false)
	diKeys := f.deps[n:]

	impl := reflect.MakeFunc(closureType, func(args []reflect.Value) []reflect.Value {
		all := make([]any, len(args)+len(diKeys))
		for i, a := range args {
			all[i] = a.Interface()
		}
		for i, k := range diKeys {
			v, err := loc.resolveLocal(k)
			if err != nil {
				return assistedError(outType, err)
			}
			all[n+i] = v
		}
		result, err := f.Invoke(all)
		if err != nil {
			return assistedError(outType, err)
		}
		return []reflect.Value{toValue(outType, result), reflect.Zero(errorType)}
	})
	return impl.Interface()
}

func assistedError(outType reflect.Type, err error) []reflect.Value {
	return []reflect.Value{reflect.Zero(outType), reflect.ValueOf(&err).Elem()}
}

func toValue(t reflect.Type, v any) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}
