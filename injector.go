package stagedi

import "context"

// Injector bundles a Module with a default Activation, giving callers a
// single entry point for the plan-then-produce cycle instead of wiring a
// Planner and Producer by hand each time.
type Injector struct {
	module     Module
	activation Activation
	autoRoots  bool
	planner    Planner
	producer   Producer
	logger     BasicLogger
}

// NewInjector builds an Injector over mod, resolved under activation by
// default.
func NewInjector(mod Module, activation Activation) Injector {
	return Injector{
		module:     mod,
		activation: activation,
		planner:    NewPlanner(),
		producer:   NewProducer(),
		logger:     NoLogger(),
	}
}

// WithLogger returns a copy of inj that reports dropped weak set-elements
// to logger.
func (inj Injector) WithLogger(logger BasicLogger) Injector {
	inj.logger = logger
	return inj
}

// WithAutoRoots returns a copy of inj where every Key the Module binds is
// treated as a root, in addition to whatever roots a Plan/Produce call
// passes explicitly. It saves a caller from re-declaring a Module's own
// Keys as roots at every call site, at the cost of producing every
// binding in the Module even if only some of them are actually consumed.
func (inj Injector) WithAutoRoots() Injector {
	inj.autoRoots = true
	return inj
}

// Plan resolves roots against the Injector's Module and Activation. If
// the Injector was built WithAutoRoots, every Key the Module binds is
// added to roots first.
func (inj Injector) Plan(roots ...Key) (Plan, error) {
	return inj.planner.Plan(inj.module, inj.effectiveRoots(inj.module, roots), inj.activation, nil)
}

// effectiveRoots unions roots with mod's own Keys when the Injector has
// auto_roots enabled, deduplicating either way.
func (inj Injector) effectiveRoots(mod Module, roots []Key) []Key {
	if !inj.autoRoots {
		return roots
	}
	seen := make(map[Key]struct{}, len(roots))
	out := make([]Key, 0, len(roots))
	for _, k := range roots {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	for _, k := range mod.Keys() {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Produce plans and synchronously/asynchronously produces roots in one
// step, with no parent Locator.
func (inj Injector) Produce(ctx context.Context, roots ...Key) (*Locator, error) {
	plan, err := inj.Plan(roots...)
	if err != nil {
		return nil, err
	}
	return inj.producer.Produce(ctx, plan, ProduceOptions{Logger: inj.logger})
}

// ProduceOne is sugar over Produce for the single-root, type-asserting
// case.
func ProduceOne[T any](ctx context.Context, inj Injector, key Key) (T, error) {
	var zero T
	loc, err := inj.Produce(ctx, key)
	if err != nil {
		return zero, err
	}
	return GetAs[T](loc, key)
}

// CreateSubcontext plans childMod's roots with parent wired in as the
// fallback Locator, then produces that plan. The returned Locator (a
// Subcontext) sees parent's bindings for any Key childMod does not itself
// provide, and merges collection Keys across the boundary.
func (inj Injector) CreateSubcontext(ctx context.Context, parent *Locator, childMod Module, roots []Key, activation Activation) (*Subcontext, error) {
	// A nil *Locator must not be boxed into the ParentLocator interface
	// directly: that would produce a non-nil interface wrapping a nil
	// pointer, and planTraversal's "t.parent != nil" check would then
	// dispatch Has on a nil receiver.
	var pl ParentLocator
	if parent != nil {
		pl = parent
	}
	plan, err := inj.planner.Plan(childMod, inj.effectiveRoots(childMod, roots), activation, pl)
	if err != nil {
		return nil, err
	}
	return inj.producer.Produce(ctx, plan, ProduceOptions{Parent: parent, Logger: inj.logger})
}
