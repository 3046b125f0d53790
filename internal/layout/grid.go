package layout

import (
	"math"

	"github.com/tjfontaine/dagview/internal/core/domain"
)

// Grid places nodes row by row in input order on a square-ish grid.
type Grid struct {
	Spacing float64
}

// Place implements Algorithm.
func (g Grid) Place(snap domain.Snapshot) Positions {
	spacing := g.Spacing
	if spacing <= 0 {
		spacing = 80
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(snap.Nodes)))))
	if cols == 0 {
		cols = 1
	}

	pos := make(Positions, len(snap.Nodes))
	for i, n := range snap.Nodes {
		pos[n.ID] = Point{
			X: float64(i%cols) * spacing,
			Y: float64(i/cols) * spacing,
		}
	}
	return pos
}
