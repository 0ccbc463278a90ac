package stagedi

import (
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
)

var axisCounter int64

// Axis is a named dimension with a finite, non-empty set of choices.  Two
// Axis values are equal iff they were returned by the same NewAxis call;
// axes are not compared by name so that two independently-constructed
// axes that happen to share a name never collide.
type Axis struct {
	id   int64
	data *axisData
}

type axisData struct {
	name    string
	choices map[string]struct{}
	order   []string
}

// NewAxis constructs an Axis with the given name and non-empty set of
// choices. Duplicate choices are an error.
func NewAxis(name string, choices ...string) (Axis, error) {
	if name == "" {
		return Axis{}, errors.New("stagedi: axis name must not be empty")
	}
	if len(choices) == 0 {
		return Axis{}, errors.Errorf("stagedi: axis %q must have at least one choice", name)
	}
	set := make(map[string]struct{}, len(choices))
	order := make([]string, 0, len(choices))
	for _, c := range choices {
		if _, dup := set[c]; dup {
			return Axis{}, errors.Errorf("stagedi: axis %q has duplicate choice %q", name, c)
		}
		set[c] = struct{}{}
		order = append(order, c)
	}
	return Axis{
		id: atomic.AddInt64(&axisCounter, 1),
		data: &axisData{
			name:    name,
			choices: set,
			order:   order,
		},
	}, nil
}

// Name returns the axis's cosmetic name.
func (a Axis) Name() string { return a.data.name }

// Choices returns the axis's choices in construction order.
func (a Axis) Choices() []string {
	out := make([]string, len(a.data.order))
	copy(out, a.data.order)
	return out
}

// HasChoice reports whether choice is one of axis's declared choices.
func (a Axis) HasChoice(choice string) bool {
	_, ok := a.data.choices[choice]
	return ok
}

func (a Axis) String() string { return a.data.name }

// AxisPoint is an (axis, choice) pair, validated at construction.
type AxisPoint struct {
	Axis   Axis
	Choice string
}

// NewAxisPoint validates that choice is a legal choice of axis.
func NewAxisPoint(axis Axis, choice string) (AxisPoint, error) {
	if axis.data == nil {
		return AxisPoint{}, errors.New("stagedi: zero-value Axis")
	}
	if !axis.HasChoice(choice) {
		return AxisPoint{}, errors.Errorf("stagedi: %q is not a choice of axis %q", choice, axis.Name())
	}
	return AxisPoint{Axis: axis, Choice: choice}, nil
}

// Activation is a function Axis -> choice: at most one choice per axis.
type Activation struct {
	points map[Axis]string
}

// NewActivation builds an Activation from a set of AxisPoints.  It fails
// if two points are supplied for the same axis.
func NewActivation(points ...AxisPoint) (Activation, error) {
	m := make(map[Axis]string, len(points))
	for _, p := range points {
		if p.Axis.data == nil {
			return Activation{}, errors.New("stagedi: zero-value Axis in activation")
		}
		if _, dup := m[p.Axis]; dup {
			return Activation{}, errors.Errorf("stagedi: activation supplies two choices for axis %q", p.Axis.Name())
		}
		m[p.Axis] = p.Choice
	}
	return Activation{points: m}, nil
}

// Choice returns the choice selected for axis, if any.
func (a Activation) Choice(axis Axis) (string, bool) {
	c, ok := a.points[axis]
	return c, ok
}

// Points returns the Activation's AxisPoints. The order is stable within a
// single process (sorted by axis name then id) so that repeated calls and
// round trips through NewActivation are reproducible.
func (a Activation) Points() []AxisPoint {
	out := make([]AxisPoint, 0, len(a.points))
	for axis, choice := range a.points {
		out = append(out, AxisPoint{Axis: axis, Choice: choice})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Axis.Name() != out[j].Axis.Name() {
			return out[i].Axis.Name() < out[j].Axis.Name()
		}
		return out[i].Axis.id < out[j].Axis.id
	})
	return out
}

// Equal reports whether a and b select the same choice on the same set of
// axes.
func (a Activation) Equal(b Activation) bool {
	if len(a.points) != len(b.points) {
		return false
	}
	for axis, choice := range a.points {
		if bc, ok := b.points[axis]; !ok || bc != choice {
			return false
		}
	}
	return true
}

// BindingTags is the map Axis -> choice attached to a Binding. Empty tags
// mean "applies everywhere".
type BindingTags struct {
	points map[Axis]string
}

// NewBindingTags builds BindingTags from a set of AxisPoints, failing if
// two points are supplied for the same axis.
func NewBindingTags(points ...AxisPoint) (BindingTags, error) {
	m := make(map[Axis]string, len(points))
	for _, p := range points {
		if p.Axis.data == nil {
			return BindingTags{}, errors.New("stagedi: zero-value Axis in binding tags")
		}
		if _, dup := m[p.Axis]; dup {
			return BindingTags{}, errors.Errorf("stagedi: binding tags supply two choices for axis %q", p.Axis.Name())
		}
		m[p.Axis] = p.Choice
	}
	return BindingTags{points: m}, nil
}

// Specificity is the cardinality of the tag set.
func (t BindingTags) Specificity() int { return len(t.points) }

// Choice returns the choice tagged for axis, if any.
func (t BindingTags) Choice(axis Axis) (string, bool) {
	c, ok := t.points[axis]
	return c, ok
}

// Axes returns the axes this tag set constrains.
func (t BindingTags) Axes() []Axis {
	out := make([]Axis, 0, len(t.points))
	for axis := range t.points {
		out = append(out, axis)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Matches reports whether every (axis, choice) in t is also selected by
// base: a tag set matches an activation iff for every point in the tag
// set, the activation selects the same choice on that axis.
func (t BindingTags) Matches(base Activation) bool {
	for axis, choice := range t.points {
		if bc, ok := base.Choice(axis); !ok || bc != choice {
			return false
		}
	}
	return true
}
