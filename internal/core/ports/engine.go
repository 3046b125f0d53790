package ports

import (
	"github.com/tjfontaine/dagview/internal/core/domain"
)

// Size is the fixed extent of a rendering surface, in the engine's units
// (pixels for SVG, cells for terminals).
type Size struct {
	Width  float64
	Height float64
}

// Container is an acquired rendering surface.
type Container interface {
	Size() Size
	// Draw presents one complete frame.
	Draw(frame []byte) error
}

// MountPoint hands out the rendering surface once it exists.
// Acquire returns domain.ErrNoMount while the surface is unavailable.
type MountPoint interface {
	Acquire() (Container, error)
	Release(c Container) error
}

// ArrowShape is the decoration drawn at an edge target.
type ArrowShape string

// CurveStyle is how edges are routed between nodes.
type CurveStyle string

const (
	ArrowTriangle ArrowShape = "triangle"
	ArrowNone     ArrowShape = "none"

	CurveBezier   CurveStyle = "bezier"
	CurveStraight CurveStyle = "straight"
)

// Style is the visual style applied to all elements.
type Style struct {
	NodeColor  string
	NodeRadius float64
	EdgeColor  string
	EdgeWidth  float64
	ArrowShape ArrowShape
	CurveStyle CurveStyle
	Background string
	LabelClass string
	LabelColor string
	FitPadding float64
	MaxZoom    float64
}

// LabelRenderer produces the overlay text for one node.
type LabelRenderer func(node domain.GraphNode) string

// Engine is a graph-drawing engine instance. It is owned by exactly one
// view and must not be shared.
type Engine interface {
	// Initialize binds the engine to container with the initial elements,
	// style and layout. The layout runs and the viewport is fit.
	Initialize(container Container, initial domain.Snapshot, style Style, layout string) error

	// ReplaceElements removes every rendered element and adds snap.
	ReplaceElements(snap domain.Snapshot) error

	// RunLayout recomputes node positions synchronously.
	RunLayout(name string) error

	// FitToContents centers the viewport on the elements and zooms to fit.
	FitToContents() error

	// AttachLabelOverlay renders labels for elements matching selector.
	AttachLabelOverlay(selector string, render LabelRenderer) error

	// Close releases everything the engine holds.
	Close() error
}

// EngineFactory creates engine instances that are already configured
// (layouts registered, options applied) by the application at startup.
type EngineFactory interface {
	NewEngine() Engine
}

// EngineFactoryFunc adapts a function to EngineFactory.
type EngineFactoryFunc func() Engine

// NewEngine calls f.
func (f EngineFactoryFunc) NewEngine() Engine {
	return f()
}
