package stagedi

// PlanStep is one entry of a Plan: the Key it produces, the resolved
// binding (or, for a collection Key, the list of surviving set-element
// bindings), and the Keys it depends on.
type PlanStep struct {
	Key          Key
	Binding      Binding   // populated when Key.Tag.IsSet() is false
	Elements     []Binding // populated when Key.Tag.IsSet() is true
	Dependencies []Key
}

// IsSet reports whether this step produces a collection.
func (s PlanStep) IsSet() bool { return s.Key.Tag.IsSet() }

// Plan is a topologically sorted list of steps: for any step S, every Key
// in S.Dependencies appears strictly earlier in Steps, or is served by the
// parent Locator supplied to the Planner.
type Plan struct {
	Steps []PlanStep
	Roots []Key
}
