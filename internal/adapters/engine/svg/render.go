package svg

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"

	svgo "github.com/ajstarks/svgo/float"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/layout"
)

// labelFontSize is in graph units, so labels scale with the zoom.
const labelFontSize = 6

// Scene is everything needed to draw one frame.
type Scene struct {
	Snapshot  domain.Snapshot
	Positions layout.Positions
	Style     ports.Style
	Size      ports.Size
	Labels    ports.LabelRenderer

	// Zoom and pan map graph coordinates to the viewport.
	Zoom float64
	PanX float64
	PanY float64
}

type viewport struct {
	zoom float64
	x    float64
	y    float64
}

// fit computes the viewport that centres every node (circles included)
// inside size minus the padding, never zooming beyond MaxZoom.
func fit(pos layout.Positions, size ports.Size, style ports.Style) viewport {
	if len(pos) == 0 {
		return viewport{zoom: 1, x: size.Width / 2, y: size.Height / 2}
	}

	lo, hi := pos.Bounds()
	r := style.NodeRadius
	w := hi.X - lo.X + 2*r
	h := hi.Y - lo.Y + 2*r

	zoom := style.MaxZoom
	if zoom <= 0 {
		zoom = 1
	}
	availW := size.Width - 2*style.FitPadding
	availH := size.Height - 2*style.FitPadding
	if w > 0 && availW > 0 {
		zoom = math.Min(zoom, availW/w)
	}
	if h > 0 && availH > 0 {
		zoom = math.Min(zoom, availH/h)
	}

	cx := (lo.X + hi.X) / 2
	cy := (lo.Y + hi.Y) / 2
	return viewport{
		zoom: zoom,
		x:    size.Width/2 - zoom*cx,
		y:    size.Height/2 - zoom*cy,
	}
}

// Render draws scene as an inline SVG document. Nodes without a position
// and edges touching them are skipped.
func Render(scene Scene) []byte {
	st := scene.Style
	var buf bytes.Buffer
	canvas := svgo.New(&buf)

	canvas.Start(scene.Size.Width, scene.Size.Height,
		fmt.Sprintf(`viewBox="0 0 %s %s"`, num(scene.Size.Width), num(scene.Size.Height)))

	arrow := st.ArrowShape == ports.ArrowTriangle
	if arrow {
		canvas.Def()
		canvas.Marker("arrow", 10, 5, 4, 4, `viewBox="0 0 10 10"`, `orient="auto"`)
		canvas.Path("M0,0 L10,5 L0,10 z", fill(st.EdgeColor))
		canvas.MarkerEnd()
		canvas.DefEnd()
	}

	canvas.Rect(0, 0, scene.Size.Width, scene.Size.Height, fill(st.Background))
	canvas.Gtransform(fmt.Sprintf("translate(%s %s) scale(%s)", num(scene.PanX), num(scene.PanY), num(scene.Zoom)))

	canvas.Group(`class="edges"`)
	for _, edge := range scene.Snapshot.Edges {
		from, ok1 := scene.Positions[edge.Source]
		to, ok2 := scene.Positions[edge.Target]
		if !ok1 || !ok2 || edge.Source == edge.Target {
			continue
		}
		attrs := []string{
			`fill="none"`,
			`stroke="` + attr(st.EdgeColor) + `"`,
			`stroke-width="` + num(st.EdgeWidth) + `"`,
		}
		if arrow {
			attrs = append(attrs, `marker-end="url(#arrow)"`)
		}
		canvas.Path(edgePath(from, to, st), attrs...)
	}
	canvas.Gend()

	canvas.Group(`class="nodes"`)
	for _, node := range scene.Snapshot.Nodes {
		p, ok := scene.Positions[node.ID]
		if !ok {
			continue
		}
		canvas.Circle(p.X, p.Y, st.NodeRadius, `data-id="`+attr(node.ID)+`"`, fill(st.NodeColor))
	}
	canvas.Gend()

	if scene.Labels != nil {
		canvas.Group(`class="labels"`)
		for _, node := range scene.Snapshot.Nodes {
			p, ok := scene.Positions[node.ID]
			if !ok {
				continue
			}
			canvas.Text(p.X, p.Y, scene.Labels(node),
				`class="`+attr(st.LabelClass)+`"`,
				fill(st.LabelColor),
				`font-size="`+strconv.Itoa(labelFontSize)+`"`,
				`text-anchor="middle"`,
				`dominant-baseline="central"`)
		}
		canvas.Gend()
	}

	canvas.Gend()
	canvas.End()

	// Frames are embedded in a page, so the XML prolog is dropped.
	out := buf.Bytes()
	if i := bytes.Index(out, []byte("<svg")); i > 0 {
		out = out[i:]
	}
	return out
}

// edgePath routes an edge from the border of the source circle to the
// border of the target circle.
func edgePath(from, to layout.Point, st ports.Style) string {
	r := st.NodeRadius
	dy := to.Y - from.Y

	if st.CurveStyle == ports.CurveBezier && dy != 0 {
		sign := math.Copysign(1, dy)
		start := layout.Point{X: from.X, Y: from.Y + sign*r}
		end := layout.Point{X: to.X, Y: to.Y - sign*r}
		mid := (end.Y - start.Y) / 2
		return "M" + pt(start) +
			" C" + pt(layout.Point{X: start.X, Y: start.Y + mid}) +
			" " + pt(layout.Point{X: end.X, Y: end.Y - mid}) +
			" " + pt(end)
	}

	dx := to.X - from.X
	d := math.Hypot(dx, dy)
	if d == 0 {
		return "M" + pt(from) + " L" + pt(to)
	}
	ux, uy := dx/d, dy/d
	start := layout.Point{X: from.X + ux*r, Y: from.Y + uy*r}
	end := layout.Point{X: to.X - ux*r, Y: to.Y - uy*r}
	return "M" + pt(start) + " L" + pt(end)
}

func pt(p layout.Point) string {
	return num(p.X) + "," + num(p.Y)
}

// num formats v with at most two decimals.
func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // no "-0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// attr escapes an attribute value. svgo writes attributes verbatim.
func attr(s string) string {
	return html.EscapeString(s)
}

func fill(color string) string {
	return `fill="` + attr(color) + `"`
}
