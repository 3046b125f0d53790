package view

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/graph"
)

type fakeContainer struct {
	frames int
}

func (c *fakeContainer) Size() ports.Size {
	return ports.Size{Width: 425, Height: 500}
}

func (c *fakeContainer) Draw(frame []byte) error {
	c.frames++
	return nil
}

type fakeMount struct {
	ready     bool
	err       error
	container *fakeContainer
	acquired  int
	released  int
}

func (m *fakeMount) Acquire() (ports.Container, error) {
	if m.err != nil {
		return nil, m.err
	}
	if !m.ready {
		return nil, domain.ErrNoMount
	}
	m.acquired++
	return m.container, nil
}

func (m *fakeMount) Release(c ports.Container) error {
	m.released++
	return nil
}

// fakeEngine records every call made by the view.
type fakeEngine struct {
	ops       []string
	initial   domain.Snapshot
	current   domain.Snapshot
	style     ports.Style
	selector  string
	label     ports.LabelRenderer
	fits      int
	closed    bool
	layoutErr error
}

func (e *fakeEngine) Initialize(c ports.Container, initial domain.Snapshot, style ports.Style, layout string) error {
	e.ops = append(e.ops, "initialize:"+layout)
	e.initial, e.current, e.style = initial, initial, style
	return nil
}

func (e *fakeEngine) ReplaceElements(snap domain.Snapshot) error {
	e.ops = append(e.ops, "replace")
	e.current = snap
	return nil
}

func (e *fakeEngine) RunLayout(name string) error {
	e.ops = append(e.ops, "layout:"+name)
	return e.layoutErr
}

func (e *fakeEngine) FitToContents() error {
	e.ops = append(e.ops, "fit")
	e.fits++
	return nil
}

func (e *fakeEngine) AttachLabelOverlay(selector string, render ports.LabelRenderer) error {
	e.ops = append(e.ops, "overlay:"+selector)
	e.selector, e.label = selector, render
	return nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

type fakeFactory struct {
	engines []*fakeEngine
	next    func() *fakeEngine
}

func (f *fakeFactory) NewEngine() ports.Engine {
	e := &fakeEngine{}
	if f.next != nil {
		e = f.next()
	}
	f.engines = append(f.engines, e)
	return e
}

func rowsScenario() (first, second []domain.EventRow) {
	first = []domain.EventRow{
		{EventID: 1, ItemID: "item-1001", Type: domain.EventCreate, Value: "a"},
		{EventID: 2, ParentID: domain.Parent(1), ItemID: "item-1001", Type: domain.EventUpdate, Value: "b"},
	}
	second = append(append([]domain.EventRow(nil), first...),
		domain.EventRow{EventID: 3, ParentID: domain.Parent(1), ItemID: "item-1002", Type: domain.EventCreate, Value: "c"},
	)
	return first, second
}

func TestLiveGraphView_DefersUntilMounted(t *testing.T) {
	ctx := context.Background()
	mount := &fakeMount{container: &fakeContainer{}}
	factory := &fakeFactory{}
	v := New(factory, mount)

	first, second := rowsScenario()

	if err := v.Update(ctx, graph.Build(first)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if v.State() != StateUninitialized {
		t.Fatalf("State() = %v, want uninitialized", v.State())
	}
	if len(factory.engines) != 0 {
		t.Fatalf("engines created = %d before mount", len(factory.engines))
	}

	// A later snapshot arrives while still unmounted; the newest one wins.
	if err := v.Update(ctx, graph.Build(second)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	mount.ready = true
	if err := v.Mounted(ctx); err != nil {
		t.Fatalf("Mounted() error = %v", err)
	}
	if v.State() != StateReady {
		t.Fatalf("State() = %v, want ready", v.State())
	}

	engine := factory.engines[0]
	if len(engine.initial.Nodes) != 4 || len(engine.initial.Edges) != 2 {
		t.Errorf("initial snapshot = %d nodes %d edges, want 4 and 2",
			len(engine.initial.Nodes), len(engine.initial.Edges))
	}
	wantOps := []string{"initialize:dagre", "overlay:node"}
	if fmt.Sprint(engine.ops) != fmt.Sprint(wantOps) {
		t.Errorf("ops = %v, want %v", engine.ops, wantOps)
	}

	// The initialization snapshot is never applied a second time.
	if err := v.Mounted(ctx); err != nil {
		t.Fatalf("Mounted() error = %v", err)
	}
	if engine.fits != 0 {
		t.Errorf("fits = %d, want 0", engine.fits)
	}
	if len(factory.engines) != 1 || mount.acquired != 1 {
		t.Errorf("engines = %d acquired = %d, want 1 and 1", len(factory.engines), mount.acquired)
	}
}

func TestLiveGraphView_StyleAndLabels(t *testing.T) {
	mount := &fakeMount{ready: true, container: &fakeContainer{}}
	factory := &fakeFactory{}
	v := New(factory, mount)

	if err := v.Mounted(context.Background()); err != nil {
		t.Fatalf("Mounted() error = %v", err)
	}

	engine := factory.engines[0]
	if engine.style.NodeColor != "#11479e" || engine.style.ArrowShape != ports.ArrowTriangle ||
		engine.style.CurveStyle != ports.CurveBezier {
		t.Errorf("style = %+v", engine.style)
	}
	if engine.selector != NodeSelector {
		t.Errorf("selector = %q, want %q", engine.selector, NodeSelector)
	}
	if got := engine.label(domain.GraphNode{ID: "9", Label: "3210: [create, x]"}); got != "3210: [create, x]" {
		t.Errorf("label = %q", got)
	}
}

func TestLiveGraphView_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container := &fakeContainer{}
	mount := &fakeMount{ready: true, container: container}
	factory := &fakeFactory{}
	v := New(factory, mount)

	rows := make(chan []domain.EventRow)
	mounts := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- v.Run(ctx, rows, mounts)
	}()

	first, second := rowsScenario()
	rows <- first
	mounts <- struct{}{}
	rows <- second
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(factory.engines) != 1 {
		t.Fatalf("engines = %d, want 1", len(factory.engines))
	}
	engine := factory.engines[0]

	if len(engine.initial.Nodes) != 3 || len(engine.initial.Edges) != 1 {
		t.Errorf("initial = %d nodes %d edges, want 3 and 1",
			len(engine.initial.Nodes), len(engine.initial.Edges))
	}
	if len(engine.current.Nodes) != 4 || len(engine.current.Edges) != 2 {
		t.Errorf("current = %d nodes %d edges, want 4 and 2",
			len(engine.current.Nodes), len(engine.current.Edges))
	}
	if engine.fits != 1 {
		t.Errorf("fits = %d, want one per emission after the initial one", engine.fits)
	}

	wantOps := []string{"initialize:dagre", "overlay:node", "replace", "layout:dagre", "fit"}
	if fmt.Sprint(engine.ops) != fmt.Sprint(wantOps) {
		t.Errorf("ops = %v, want %v", engine.ops, wantOps)
	}

	if !engine.closed {
		t.Error("engine not closed after Run")
	}
	if mount.released != 1 {
		t.Errorf("released = %d, want 1", mount.released)
	}
	if v.State() != StateClosed {
		t.Errorf("State() = %v, want closed", v.State())
	}
}

func TestLiveGraphView_RunStopsWhenRowsClose(t *testing.T) {
	mount := &fakeMount{ready: true, container: &fakeContainer{}}
	v := New(&fakeFactory{}, mount)

	rows := make(chan []domain.EventRow)
	close(rows)

	if err := v.Run(context.Background(), rows, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if v.State() != StateClosed {
		t.Errorf("State() = %v, want closed", v.State())
	}
}

func TestLiveGraphView_EngineErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	mount := &fakeMount{ready: true, container: &fakeContainer{}}
	factory := &fakeFactory{next: func() *fakeEngine {
		return &fakeEngine{layoutErr: fmt.Errorf("%w: %q", domain.ErrUnknownLayout, "cose")}
	}}
	v := New(factory, mount, WithLayout("cose"))

	if err := v.Mounted(ctx); err != nil {
		t.Fatalf("Mounted() error = %v", err)
	}

	err := v.Update(ctx, graph.Build(nil))
	if !errors.Is(err, domain.ErrUnknownLayout) {
		t.Fatalf("Update() error = %v, want ErrUnknownLayout", err)
	}
	var ee *domain.EngineError
	if !errors.As(err, &ee) || ee.Op != "layout" {
		t.Errorf("error op = %v, want layout", ee)
	}
}

func TestLiveGraphView_AcquireFailure(t *testing.T) {
	boom := errors.New("boom")
	mount := &fakeMount{err: boom}
	v := New(&fakeFactory{}, mount)

	if err := v.Mounted(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Mounted() error = %v, want %v", err, boom)
	}
}

func TestLiveGraphView_CloseIgnoresLaterTriggers(t *testing.T) {
	ctx := context.Background()
	mount := &fakeMount{ready: true, container: &fakeContainer{}}
	factory := &fakeFactory{}
	v := New(factory, mount)

	if err := v.Mounted(ctx); err != nil {
		t.Fatalf("Mounted() error = %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if err := v.Update(ctx, graph.Build(nil)); err != nil {
		t.Fatalf("Update() after Close error = %v", err)
	}
	if got := len(factory.engines[0].ops); got != 2 {
		t.Errorf("ops after close = %d, want 2", got)
	}
	if mount.released != 1 {
		t.Errorf("released = %d, want 1", mount.released)
	}
}
