// Package svg is a rendering engine that draws snapshots as SVG documents.
package svg

import (
	"fmt"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/layout"
)

// NodeSelector is the only label overlay selector the engine understands.
const NodeSelector = "node"

// Engine keeps the current elements and their positions and presents a
// complete SVG document to its container on every visible change.
// An Engine is owned by one view and is not safe for concurrent use.
type Engine struct {
	layouts *layout.Registry

	container ports.Container
	style     ports.Style
	snap      domain.Snapshot
	positions layout.Positions
	view      viewport
	labels    ports.LabelRenderer

	initialized bool
	closed      bool
}

// Ensure Engine implements ports.Engine at compile time.
var _ ports.Engine = (*Engine)(nil)

// New creates an engine resolving layout names against layouts.
func New(layouts *layout.Registry) *Engine {
	return &Engine{layouts: layouts, view: viewport{zoom: 1}}
}

// NewFactory returns a factory creating engines bound to layouts.
func NewFactory(layouts *layout.Registry) ports.EngineFactory {
	return ports.EngineFactoryFunc(func() ports.Engine {
		return New(layouts)
	})
}

// Initialize binds the engine to container, lays out initial with the
// named layout and presents the first frame.
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

// ReplaceElements drops every element and adds snap. Positions are
// discarded until the next RunLayout.
func (e *Engine) ReplaceElements(snap domain.Snapshot) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.snap = snap
	e.positions = nil
	return nil
}

// RunLayout places all elements with the named algorithm.
func (e *Engine) RunLayout(name string) error {
	if err := e.ready(); err != nil {
		return err
	}
	algo, err := e.layouts.Lookup(name)
	if err != nil {
		return err
	}
	e.positions = algo.Place(e.snap)
	return nil
}

// FitToContents centres and zooms the viewport on the elements, then
// presents a frame.
func (e *Engine) FitToContents() error {
	if err := e.ready(); err != nil {
		return err
	}
	e.view = fit(e.positions, e.container.Size(), e.style)
	return e.present()
}

// AttachLabelOverlay draws render(node) over every node. Only NodeSelector
// is supported.
func (e *Engine) AttachLabelOverlay(selector string, render ports.LabelRenderer) error {
	if err := e.ready(); err != nil {
		return err
	}
	if selector != NodeSelector {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedSelector, selector)
	}
	e.labels = render
	return e.present()
}

// Close forgets the container and all elements.
func (e *Engine) Close() error {
	e.closed = true
	e.initialized = false
	e.container = nil
	e.positions = nil
	e.labels = nil
	e.snap = domain.Snapshot{}
	return nil
}

func (e *Engine) ready() error {
	if !e.initialized {
		return domain.ErrNotInitialized
	}
	return nil
}

func (e *Engine) present() error {
	frame := Render(Scene{
		Snapshot:  e.snap,
		Positions: e.positions,
		Style:     e.style,
		Size:      e.container.Size(),
		Labels:    e.labels,
		Zoom:      e.view.zoom,
		PanX:      e.view.x,
		PanY:      e.view.y,
	})
	return e.container.Draw(frame)
}
