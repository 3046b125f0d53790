package view

import (
	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
)

const (
	// DefaultLayout is the layered DAG layout.
	DefaultLayout = "dagre"

	// NodeSelector matches every node for the label overlay.
	NodeSelector = "node"
)

// DefaultStyle is the fixed look of the graph: solid nodes, curved and
// arrowed edges.
func DefaultStyle() ports.Style {
	return ports.Style{
		NodeColor:  "#11479e",
		NodeRadius: 15,
		EdgeColor:  "#9dbaea",
		EdgeWidth:  4,
		ArrowShape: ports.ArrowTriangle,
		CurveStyle: ports.CurveBezier,
		Background: "black",
		LabelClass: "dag-label",
		LabelColor: "white",
		FitPadding: 30,
		MaxZoom:    2,
	}
}

// nodeLabel renders a node's label centred on the node.
func nodeLabel(n domain.GraphNode) string {
	return n.Label
}
