package stagedi

import "sort"

// ParentLocator is the subset of Locator the Planner needs: just enough to
// know whether a Key is already available from an enclosing scope, so that
// a dependency served by the parent does not have to be re-resolved.
type ParentLocator interface {
	Has(key Key) bool
}

// Planner resolves a Module's bindings against an Activation using
// path-aware axis tracing. Planner is purely computational: it
// holds no state after Plan returns, never calls user code, and is safe to
// invoke concurrently on independent inputs.
type Planner struct{}

// NewPlanner returns a Planner. Planner has no configuration: all
// per-call state (module, roots, activation, parent) is passed to Plan.
func NewPlanner() Planner { return Planner{} }

// Plan resolves roots against mod under activation, optionally falling
// back to parent for Keys the module does not bind. It returns one of
// MissingDependencyError, CircularDependencyError, ConflictingBindingsError,
// or AxisConflictError on failure; Planner never partially commits.
func (Planner) Plan(mod Module, roots []Key, activation Activation, parent ParentLocator) (Plan, error) {
	t := &planTraversal{
		index:   mod.indexByKey(),
		base:    activation,
		parent:  parent,
		visited: map[Key]bool{},
		visiting: map[Key]bool{},
		steps:   map[Key]PlanStep{},
		order:   nil,
	}
	for _, root := range roots {
		if err := t.resolve(root, nil, nil, newPathActivation(activation)); err != nil {
			return Plan{}, err
		}
	}
	sorted, err := topoSort(t.steps, t.order)
	if err != nil {
		return Plan{}, err
	}
	rootsCopy := make([]Key, len(roots))
	copy(rootsCopy, roots)
	return Plan{Steps: sorted, Roots: rootsCopy}, nil
}

type planTraversal struct {
	index    map[Key][]Binding
	base     Activation
	parent   ParentLocator
	visited  map[Key]bool
	visiting map[Key]bool
	steps    map[Key]PlanStep
	order    []Key // discovery order, used as a tiebreak before topoSort
}

// resolve performs one per-key traversal step. path is the chain of
// Keys from a root down to (but not including) key, used for error
// messages and cycle detection.
func (t *planTraversal) resolve(key Key, dependent *Key, path []Key, pa pathActivation) error {
	if t.visited[key] {
		return nil
	}
	if t.visiting[key] {
		cycle := append(append([]Key{}, path...), key)
		return &CircularDependencyError{Cycle: cycle}
	}

	if key == RegistrarKey() {
		// Always available: the Producer resolves it directly against the
		// Locator under construction, not via a Module binding.
		t.visited[key] = true
		return nil
	}

	candidates := t.index[key]
	if len(candidates) == 0 {
		if t.parent != nil && t.parent.Has(key) {
			t.visited[key] = true
			return nil
		}
		return &MissingDependencyError{Key: key, Dependent: dependent, Path: append(append([]Key{}, path...), key)}
	}

	selected, isSet, err := selectCandidates(key, candidates, t.base, pa)
	if err != nil {
		if ae, ok := err.(*axisConflictSentinel); ok {
			return &AxisConflictError{Key: key, Dependent: dependent, Constraint: ae.constraint, Path: append(append([]Key{}, path...), key)}
		}
		if ce, ok := err.(*conflictSentinel); ok {
			return &ConflictingBindingsError{Key: key, Candidates: ce.candidates, Path: append(append([]Key{}, path...), key)}
		}
		return err
	}

	t.visiting[key] = true
	newPath := append(append([]Key{}, path...), key)

	if isSet {
		var survivors []Binding
		var deps []Key
		seen := map[Key]struct{}{}
		for _, elem := range selected {
			elemPA := pa.withTags(elem.tags)
			elemDeps := elem.dependencies()
			if failErr := t.resolveAll(elemDeps, &key, newPath, elemPA); failErr != nil {
				if elem.weak && isWeakRecoverable(failErr) {
					continue
				}
				delete(t.visiting, key)
				return failErr
			}
			survivors = append(survivors, elem)
			for _, d := range elemDeps {
				if _, ok := seen[d]; !ok {
					seen[d] = struct{}{}
					deps = append(deps, d)
				}
			}
		}
		t.steps[key] = PlanStep{Key: key, Elements: survivors, Dependencies: deps}
	} else {
		b := selected[0]
		deps := b.dependencies()
		bPA := pa.withTags(b.tags)
		if failErr := t.resolveAll(deps, &key, newPath, bPA); failErr != nil {
			delete(t.visiting, key)
			return failErr
		}
		t.steps[key] = PlanStep{Key: key, Binding: b, Dependencies: deps}
	}

	delete(t.visiting, key)
	t.visited[key] = true
	t.order = append(t.order, key)
	return nil
}

func (t *planTraversal) resolveAll(deps []Key, dependent *Key, path []Key, pa pathActivation) error {
	for _, d := range deps {
		if err := t.resolve(d, dependent, path, pa); err != nil {
			return err
		}
	}
	return nil
}

func isWeakRecoverable(err error) bool {
	switch err.(type) {
	case *MissingDependencyError, *AxisConflictError:
		return true
	default:
		return false
	}
}

// selectCandidates applies the most-specific-valid-binding selection
// rule. It returns either a single non-set binding, or (if key is a
// collection Key) the full list of valid set-element bindings.
//
// candidates is never empty here: resolve already turns a Key with no
// indexed bindings at all into MissingDependencyError before calling
// this function. An untagged candidate is unconditionally valid (it
// imposes no axis constraint to fail), so an empty valid set after
// filtering means every candidate was tagged and every one of them was
// ruled out by some axis -- either because its tag disagrees with the
// caller-supplied Activation directly, or because it disagrees with a
// choice an ancestor already fixed on the current resolution path. Both
// are axis conflicts, not a missing binding.
func selectCandidates(key Key, candidates []Binding, base Activation, pa pathActivation) ([]Binding, bool, error) {
	var valid []Binding
	for _, c := range candidates {
		if !c.tags.Matches(base) {
			continue
		}
		if !pa.allows(c.tags) {
			continue
		}
		valid = append(valid, c)
	}

	if key.Tag.IsSet() {
		return valid, true, nil
	}

	if len(valid) == 0 {
		return nil, false, &axisConflictSentinel{constraint: pa.describeConflict(candidates[0].tags)}
	}

	maxSpec := 0
	for _, c := range valid {
		if s := c.tags.Specificity(); s > maxSpec {
			maxSpec = s
		}
	}
	var mostSpecific []Binding
	for _, c := range valid {
		if c.tags.Specificity() == maxSpec {
			mostSpecific = append(mostSpecific, c)
		}
	}
	if len(mostSpecific) == 1 {
		return mostSpecific, false, nil
	}
	return nil, false, &conflictSentinel{candidates: mostSpecific}
}

type axisConflictSentinel struct{ constraint string }

func (e *axisConflictSentinel) Error() string { return e.constraint }

type conflictSentinel struct{ candidates []Binding }

func (e *conflictSentinel) Error() string { return "conflict" }

// topoSort performs an explicit second pass: every step is placed after
// all of its dependencies that are themselves steps. This is
// needed because set accumulation can append steps out of DFS post-order.
func topoSort(steps map[Key]PlanStep, discovery []Key) ([]PlanStep, error) {
	order := make(map[Key]int, len(discovery))
	for i, k := range discovery {
		order[k] = i
	}

	var sorted []PlanStep
	placed := map[Key]bool{}
	var visit func(key Key, stack map[Key]bool) error
	visit = func(key Key, stack map[Key]bool) error {
		if placed[key] {
			return nil
		}
		step, ok := steps[key]
		if !ok {
			return nil // served by the parent Locator
		}
		if stack[key] {
			return &CircularDependencyError{Cycle: []Key{key}}
		}
		stack[key] = true
		for _, d := range step.Dependencies {
			if err := visit(d, stack); err != nil {
				return err
			}
		}
		delete(stack, key)
		placed[key] = true
		sorted = append(sorted, step)
		return nil
	}

	keys := make([]Key, 0, len(steps))
	for k := range steps {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return order[keys[i]] < order[keys[j]] })

	for _, k := range keys {
		if err := visit(k, map[Key]bool{}); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
