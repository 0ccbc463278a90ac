package stagedi

import "fmt"

// pathActivation is the (required, forbidden) axis-choice state threaded
// through Planner's traversal. It is immutable: augmenting it
// for a recursive call returns a new value so that sibling branches of the
// traversal never see each other's constraints.
type pathActivation struct {
	base      Activation
	required  map[Axis]map[string]struct{}
	forbidden map[Axis]map[string]struct{}
}

func newPathActivation(base Activation) pathActivation {
	return pathActivation{
		base:      base,
		required:  map[Axis]map[string]struct{}{},
		forbidden: map[Axis]map[string]struct{}{},
	}
}

func cloneAxisSets(m map[Axis]map[string]struct{}) map[Axis]map[string]struct{} {
	out := make(map[Axis]map[string]struct{}, len(m))
	for axis, choices := range m {
		cp := make(map[string]struct{}, len(choices))
		for c := range choices {
			cp[c] = struct{}{}
		}
		out[axis] = cp
	}
	return out
}

// withTags returns the pathActivation resulting from selecting a binding
// with the given tags on the current path: each tagged choice is added to
// required[axis], and every other choice of that axis is added to
// forbidden[axis].
func (p pathActivation) withTags(tags BindingTags) pathActivation {
	if tags.Specificity() == 0 {
		return p
	}
	required := cloneAxisSets(p.required)
	forbidden := cloneAxisSets(p.forbidden)
	for _, axis := range tags.Axes() {
		choice, _ := tags.Choice(axis)
		if required[axis] == nil {
			required[axis] = map[string]struct{}{}
		}
		required[axis][choice] = struct{}{}
		if forbidden[axis] == nil {
			forbidden[axis] = map[string]struct{}{}
		}
		for _, other := range axis.Choices() {
			if other != choice {
				forbidden[axis][other] = struct{}{}
			}
		}
	}
	return pathActivation{base: p.base, required: required, forbidden: forbidden}
}

// allows reports whether tags is consistent with the path's accumulated
// required/forbidden axis-choice constraints. Untagged axes, and axes
// the path has not yet constrained, impose no restriction.
func (p pathActivation) allows(tags BindingTags) bool {
	for _, axis := range tags.Axes() {
		choice, _ := tags.Choice(axis)
		req, hasReq := p.required[axis]
		forb, hasForb := p.forbidden[axis]
		if !hasReq && !hasForb {
			continue
		}
		if hasReq && len(req) > 0 {
			if _, ok := req[choice]; !ok {
				return false
			}
		}
		if hasForb {
			if _, ok := forb[choice]; ok {
				return false
			}
		}
	}
	return true
}

// describeConflict renders the axis/choice constraint that rejected tags,
// for AxisConflictError's Constraint field. The rejection may come from
// an ancestor's tag on the current resolution path (required/forbidden)
// or directly from the caller-supplied Activation, when tags names an
// axis the path has not touched yet.
func (p pathActivation) describeConflict(tags BindingTags) string {
	for _, axis := range tags.Axes() {
		choice, _ := tags.Choice(axis)
		if req, ok := p.required[axis]; ok && len(req) > 0 {
			if _, ok := req[choice]; !ok {
				return fmt.Sprintf("axis %q must be one of %v, got %q", axis.Name(), setKeys(req), choice)
			}
		}
		if forb, ok := p.forbidden[axis]; ok {
			if _, ok := forb[choice]; ok {
				return fmt.Sprintf("axis %q must not be %q", axis.Name(), choice)
			}
		}
		if bc, ok := p.base.Choice(axis); ok && bc != choice {
			return fmt.Sprintf("axis %q must be %q, got %q", axis.Name(), bc, choice)
		}
	}
	return "axis constraints on the current resolution path rule out every candidate"
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
