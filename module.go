package stagedi

import "github.com/pkg/errors"

// Module is an ordered sequence of Bindings.
type Module struct {
	bindings []Binding
}

// NewModule builds a Module from the given Bindings, preserving order.
func NewModule(bindings ...Binding) Module {
	cp := make([]Binding, len(bindings))
	copy(cp, bindings)
	return Module{bindings: cp}
}

// Bindings returns the Module's Bindings in declaration order.
func (m Module) Bindings() []Binding {
	out := make([]Binding, len(m.bindings))
	copy(out, m.bindings)
	return out
}

// Append concatenates m and o; bindings from both sides coexist.
// append(M, empty) == M.
func (m Module) Append(o Module) Module {
	out := make([]Binding, 0, len(m.bindings)+len(o.bindings))
	out = append(out, m.bindings...)
	out = append(out, o.bindings...)
	return Module{bindings: out}
}

// OverriddenBy returns the union of m's and overlay's bindings, except
// that for every Key with at least one non-set binding in overlay, none of
// m's non-set bindings for that Key survive -- overlay fully replaces that
// Key. A non-set binding is never allowed to override a collection Key
// outright -- mixing override and accumulation semantics for the same
// Key would make the result depend on bind order in a way callers can't
// predict, so it is rejected instead. Set-element bindings from both
// sides are always retained; overridden_by(M, empty) == M.
func (m Module) OverriddenBy(overlay Module) (Module, error) {
	replaced := make(map[Key]struct{})
	for _, b := range overlay.bindings {
		if b.kind == KindSetElement {
			continue
		}
		if b.key.Tag.IsSet() {
			return Module{}, errors.Errorf(
				"stagedi: %s is a collection key; it cannot be overridden by a non-set binding", b.key)
		}
		replaced[b.key] = struct{}{}
	}

	out := make([]Binding, 0, len(m.bindings)+len(overlay.bindings))
	for _, b := range m.bindings {
		if b.kind == KindSetElement {
			out = append(out, b)
			continue
		}
		if _, dropped := replaced[b.key]; dropped {
			continue
		}
		out = append(out, b)
	}
	out = append(out, overlay.bindings...)
	return Module{bindings: out}, nil
}

// Keys returns every distinct Key the Module binds, in first-occurrence
// order -- a SetElement binding contributes its collection Key, not its
// own element Key, so a collection appears once regardless of how many
// elements feed it. It is the source of roots for auto_roots: a Module
// used with it binds every Key it is asked to produce, with none left
// unreferenced.
func (m Module) Keys() []Key {
	seen := map[Key]struct{}{}
	var out []Key
	for _, b := range m.bindings {
		if _, ok := seen[b.key]; ok {
			continue
		}
		seen[b.key] = struct{}{}
		out = append(out, b.key)
	}
	return out
}

// indexByKey groups all bindings by Key, preserving within-Key order.
// No activation filtering happens here.
func (m Module) indexByKey() map[Key][]Binding {
	idx := make(map[Key][]Binding)
	for _, b := range m.bindings {
		idx[b.key] = append(idx[b.key], b)
	}
	return idx
}
