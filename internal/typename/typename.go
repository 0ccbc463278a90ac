// Package typename renders reflect.Types the way error and debug output
// needs: short, stable, and without the noise of fully qualified import
// paths for every frame. It is a thin seam over reflectutils so the rest
// of the module never imports reflect+reflectutils together.
package typename

import (
	"reflect"

	"github.com/muir/reflectutils"
)

// Of returns the display name for t.
func Of(t reflect.Type) string {
	if t == nil {
		return "<nil type>"
	}
	return reflectutils.TypeName(t)
}
