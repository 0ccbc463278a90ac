package stagedi

import (
	"fmt"
	"strings"

	"github.com/stagedi/stagedi/internal/typename"
)

// String renders tag for error messages and debug traces.
func (t TypeTag) String() string {
	var base string
	switch t.kind {
	case kindNominal:
		base = typename.Of(t.typ)
	case kindToken:
		tokenLock.Lock()
		name := tokenNames[t.token]
		tokenLock.Unlock()
		base = fmt.Sprintf("token(%s)", name)
	case kindPrimitive:
		base = t.prim.String()
	default:
		base = "unknown-tag"
	}
	if t.setDepth == 0 {
		return base
	}
	return fmt.Sprintf("%s%s%s", strings.Repeat("set-of(", t.setDepth), base, strings.Repeat(")", t.setDepth))
}

// String renders k for error messages and debug traces.
func (k Key) String() string {
	if k.hasID {
		return fmt.Sprintf("%s#%s", k.Tag.String(), k.id)
	}
	return k.Tag.String()
}

func (a Activation) String() string {
	points := a.Points()
	if len(points) == 0 {
		return "{}"
	}
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%s=%s", p.Axis.Name(), p.Choice)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (t BindingTags) String() string {
	axes := t.Axes()
	if len(axes) == 0 {
		return "{}"
	}
	parts := make([]string, len(axes))
	for i, axis := range axes {
		choice, _ := t.Choice(axis)
		parts[i] = fmt.Sprintf("%s=%s", axis.Name(), choice)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func keysString(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}
