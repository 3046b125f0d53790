package registration

import (
	"github.com/tjfontaine/dagview/internal/layout"
)

// Layout names registered by Layouts.
const (
	LayoutDagre   = "dagre"
	LayoutLayered = "layered"
	LayoutGrid    = "grid"
)

// Layouts builds the layout registry explicitly. This replaces init-based
// side effects and is intended to be called once from cmd/dagview and
// tests before creating engines.
func Layouts() *layout.Registry {
	r := layout.NewRegistry()
	mustRegister(r, LayoutDagre, layout.Layered{})
	mustRegister(r, LayoutLayered, layout.Layered{})
	mustRegister(r, LayoutGrid, layout.Grid{})
	return r
}

func mustRegister(r *layout.Registry, name string, a layout.Algorithm) {
	if err := r.Register(name, a); err != nil {
		panic(err)
	}
}
