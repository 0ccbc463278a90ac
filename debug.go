package stagedi

import (
	"fmt"
	"strings"
)

// DetailedError renders a human-legible dependency-path trace for planning
// failures. For anything that is not one of the Planner's typed errors it
// just returns err.Error().
func DetailedError(err error) string {
	if err == nil {
		return ""
	}
	switch e := err.(type) {
	case *MissingDependencyError:
		return err.Error() + "\n\n" + renderPath("resolution path", e.Path)
	case *CircularDependencyError:
		return err.Error() + "\n\ncycle:\n  " + keysString(e.Cycle)
	case *ConflictingBindingsError:
		var b strings.Builder
		b.WriteString(err.Error())
		b.WriteString("\n\ncandidates:\n")
		for _, c := range e.Candidates {
			fmt.Fprintf(&b, "  - %s tags=%s\n", c.String(), c.tags.String())
		}
		b.WriteString(renderPath("resolution path", e.Path))
		return b.String()
	case *AxisConflictError:
		return err.Error() + "\n\n" + renderPath("resolution path", e.Path)
	default:
		return err.Error()
	}
}

func renderPath(label string, path []Key) string {
	if len(path) == 0 {
		return ""
	}
	return label + ":\n  " + keysString(path) + "\n"
}
