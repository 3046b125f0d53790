// Package term is a rendering engine that draws snapshots as styled text
// for a terminal, one row of boxes per layout rank.
package term

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/layout"
)

// NodeSelector is the only label overlay selector the engine understands.
const NodeSelector = "node"

// clearScreen moves the cursor home and clears the screen.
const clearScreen = "\x1b[H\x1b[2J"

// Engine presents frames sized in terminal cells. It is owned by one view
// and is not safe for concurrent use.
type Engine struct {
	layouts *layout.Registry

	container ports.Container
	style     ports.Style
	snap      domain.Snapshot
	positions layout.Positions
	labels    ports.LabelRenderer

	initialized bool
	closed      bool
}

// Ensure Engine implements ports.Engine at compile time.
var _ ports.Engine = (*Engine)(nil)

// New creates an engine resolving layout names against layouts.
func New(layouts *layout.Registry) *Engine {
	return &Engine{layouts: layouts}
}

// NewFactory returns a factory creating engines bound to layouts.
func NewFactory(layouts *layout.Registry) ports.EngineFactory {
	return ports.EngineFactoryFunc(func() ports.Engine {
		return New(layouts)
	})
}

func (e *Engine) Initialize(container ports.Container, initial domain.Snapshot, style ports.Style, layoutName string) error {
	if e.closed {
		return fmt.Errorf("initialize closed engine")
	}
	if container == nil {
		return domain.ErrNoMount
	}

	e.container = container
	e.style = style
	e.snap = initial
	e.initialized = true

	if err := e.RunLayout(layoutName); err != nil {
		e.initialized = false
		return err
	}
	return e.FitToContents()
}

func (e *Engine) ReplaceElements(snap domain.Snapshot) error {
	if !e.initialized {
		return domain.ErrNotInitialized
	}
	e.snap = snap
	e.positions = nil
	return nil
}

func (e *Engine) RunLayout(name string) error {
	if !e.initialized {
		return domain.ErrNotInitialized
	}
	algo, err := e.layouts.Lookup(name)
	if err != nil {
		return err
	}
	e.positions = algo.Place(e.snap)
	return nil
}

// FitToContents centres the drawing in the terminal and presents it.
func (e *Engine) FitToContents() error {
	if !e.initialized {
		return domain.ErrNotInitialized
	}
	return e.present()
}

func (e *Engine) AttachLabelOverlay(selector string, render ports.LabelRenderer) error {
	if !e.initialized {
		return domain.ErrNotInitialized
	}
	if selector != NodeSelector {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedSelector, selector)
	}
	e.labels = render
	return e.present()
}

func (e *Engine) Close() error {
	e.closed = true
	e.initialized = false
	e.container = nil
	e.positions = nil
	e.labels = nil
	e.snap = domain.Snapshot{}
	return nil
}

func (e *Engine) present() error {
	size := e.container.Size()
	body := Render(e.snap, e.positions, e.style, e.labels)

	w, h := int(size.Width), int(size.Height)
	placed := lipgloss.NewStyle().MaxWidth(w).MaxHeight(h).
		Render(lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, body))
	return e.container.Draw([]byte(clearScreen + placed))
}

// Render draws the positioned nodes of snap as rows of rounded boxes, one
// row per rank, followed by the edge list. Without labels, boxes show the
// node id.
func Render(snap domain.Snapshot, pos layout.Positions, style ports.Style, labels ports.LabelRenderer) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color(style.NodeColor)).
		Foreground(color(style.LabelColor)).
		Padding(0, 1)
	edge := lipgloss.NewStyle().Foreground(color(style.EdgeColor))

	var blocks []string
	for i, rank := range ranks(snap, pos) {
		if i > 0 {
			blocks = append(blocks, edge.Render("│"))
		}
		boxes := make([]string, 0, 2*len(rank))
		for j, node := range rank {
			if j > 0 {
				boxes = append(boxes, " ")
			}
			text := node.ID
			if labels != nil {
				text = labels(node)
			}
			boxes = append(boxes, box.Render(text))
		}
		blocks = append(blocks, lipgloss.JoinHorizontal(lipgloss.Center, boxes...))
	}

	if len(snap.Edges) > 0 {
		lines := make([]string, 0, len(snap.Edges))
		for _, e := range snap.Edges {
			lines = append(lines, fmt.Sprintf("%s → %s", e.Source, e.Target))
		}
		blocks = append(blocks, "", edge.Render(strings.Join(lines, "\n")))
	}

	return lipgloss.JoinVertical(lipgloss.Center, blocks...)
}

// ranks groups positioned nodes by their y coordinate, top to bottom,
// each rank ordered left to right.
func ranks(snap domain.Snapshot, pos layout.Positions) [][]domain.GraphNode {
	byY := make(map[float64][]domain.GraphNode)
	for _, n := range snap.Nodes {
		p, ok := pos[n.ID]
		if !ok {
			continue
		}
		y := math.Round(p.Y)
		byY[y] = append(byY[y], n)
	}

	ys := make([]float64, 0, len(byY))
	for y := range byY {
		ys = append(ys, y)
	}
	sort.Float64s(ys)

	out := make([][]domain.GraphNode, 0, len(ys))
	for _, y := range ys {
		rank := byY[y]
		sort.SliceStable(rank, func(i, j int) bool {
			return pos[rank[i].ID].X < pos[rank[j].ID].X
		})
		out = append(out, rank)
	}
	return out
}

// color accepts hex colours and ANSI colour numbers; anything else, such
// as CSS colour names, leaves the terminal default.
func color(s string) lipgloss.TerminalColor {
	if strings.HasPrefix(s, "#") {
		return lipgloss.Color(s)
	}
	if s != "" && strings.Trim(s, "0123456789") == "" {
		return lipgloss.Color(s)
	}
	return lipgloss.NoColor{}
}
