// Package view keeps a rendering engine in sync with the latest graph
// snapshot.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/graph"
	"github.com/tjfontaine/dagview/internal/metrics"
)

// State is the lifecycle state of a LiveGraphView.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Option configures a LiveGraphView.
type Option func(*LiveGraphView)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *LiveGraphView) {
		v.logger = logger
	}
}

// WithStyle overrides DefaultStyle.
func WithStyle(style ports.Style) Option {
	return func(v *LiveGraphView) {
		v.style = style
	}
}

// WithLayout overrides DefaultLayout.
func WithLayout(name string) Option {
	return func(v *LiveGraphView) {
		v.layout = name
	}
}

// LiveGraphView owns one rendering engine and keeps it consistent with the
// latest snapshot. It is not safe for concurrent use: all triggers must come
// from one goroutine, normally the one running Run.
type LiveGraphView struct {
	factory ports.EngineFactory
	mount   ports.MountPoint
	style   ports.Style
	layout  string
	logger  *slog.Logger
	tracer  trace.Tracer

	engine    ports.Engine
	container ports.Container
	snapshot  domain.Snapshot

	// gen counts delivered snapshots, applied the one the engine shows.
	gen     uint64
	applied uint64
	closed  bool
}

// New creates an uninitialized view. The engine is created from factory the
// first time mount yields a surface.
func New(factory ports.EngineFactory, mount ports.MountPoint, opts ...Option) *LiveGraphView {
	v := &LiveGraphView{
		factory: factory,
		mount:   mount,
		style:   DefaultStyle(),
		layout:  DefaultLayout,
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/tjfontaine/dagview/internal/view"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// State reports the lifecycle state.
func (v *LiveGraphView) State() State {
	switch {
	case v.closed:
		return StateClosed
	case v.engine != nil:
		return StateReady
	default:
		return StateUninitialized
	}
}

// Snapshot returns the latest delivered snapshot.
func (v *LiveGraphView) Snapshot() domain.Snapshot {
	return v.snapshot
}

// Update delivers a new snapshot and runs a render pass.
func (v *LiveGraphView) Update(ctx context.Context, snap domain.Snapshot) error {
	if v.closed {
		return nil
	}
	v.snapshot = snap
	v.gen++
	return v.render(ctx)
}

// Mounted signals that the rendering surface may now be available and runs
// a render pass.
func (v *LiveGraphView) Mounted(ctx context.Context) error {
	if v.closed {
		return nil
	}
	return v.render(ctx)
}

// Close releases the engine and returns the surface to its mount point.
// Further triggers are ignored.
func (v *LiveGraphView) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true

	var errs []error
	if v.engine != nil {
		if err := v.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine: %w", err))
		}
		v.engine = nil
	}
	if v.container != nil {
		if err := v.mount.Release(v.container); err != nil {
			errs = append(errs, fmt.Errorf("release surface: %w", err))
		}
		v.container = nil
	}
	return errors.Join(errs...)
}

// Run is the view's event loop. Every row set received on rows is turned
// into a snapshot and rendered; every signal on mounts retries surface
// acquisition. Run returns when ctx ends or rows closes, and always closes
// the view. Engine failures stop the loop and are returned.
func (v *LiveGraphView) Run(ctx context.Context, rows <-chan []domain.EventRow, mounts <-chan struct{}) (err error) {
	metrics.ActiveViews.Inc()
	defer metrics.ActiveViews.Dec()
	defer func() {
		if cerr := v.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case rs, ok := <-rows:
			if !ok {
				return nil
			}
			if err := v.Update(ctx, v.build(ctx, rs)); err != nil {
				return err
			}

		case _, ok := <-mounts:
			if !ok {
				mounts = nil
				continue
			}
			if err := v.Mounted(ctx); err != nil {
				return err
			}
		}
	}
}

func (v *LiveGraphView) build(ctx context.Context, rows []domain.EventRow) domain.Snapshot {
	_, span := v.tracer.Start(ctx, "graph.build", trace.WithAttributes(
		attribute.Int("rows", len(rows)),
	))
	defer span.End()

	snap := graph.Build(rows)
	metrics.SnapshotsBuilt.Inc()
	metrics.SnapshotNodes.Observe(float64(len(snap.Nodes)))
	return snap
}

func (v *LiveGraphView) render(ctx context.Context) error {
	if v.engine == nil {
		return v.initialize(ctx)
	}
	if v.applied == v.gen {
		return nil
	}
	return v.replace(ctx)
}

func (v *LiveGraphView) initialize(ctx context.Context) error {
	container, err := v.mount.Acquire()
	if errors.Is(err, domain.ErrNoMount) {
		metrics.DeferredMounts.Inc()
		v.logger.Debug("rendering surface not mounted, deferring initialization")
		return nil
	}
	if err != nil {
		return fmt.Errorf("acquire surface: %w", err)
	}

	_, span := v.tracer.Start(ctx, "view.initialize", v.spanAttrs())
	defer span.End()
	start := time.Now()

	engine := v.factory.NewEngine()
	fail := func(op string, err error) error {
		_ = engine.Close()
		_ = v.mount.Release(container)
		err = domain.NewEngineError(op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := engine.Initialize(container, v.snapshot, v.style, v.layout); err != nil {
		return fail("initialize", err)
	}
	if err := engine.AttachLabelOverlay(NodeSelector, nodeLabel); err != nil {
		return fail("label overlay", err)
	}

	v.engine = engine
	v.container = container
	v.applied = v.gen

	metrics.RenderPasses.WithLabelValues("initialize").Inc()
	metrics.RenderDuration.WithLabelValues("initialize").Observe(time.Since(start).Seconds())
	v.logger.Info("graph view initialized",
		slog.String("layout", v.layout),
		slog.Int("nodes", len(v.snapshot.Nodes)),
		slog.Int("edges", len(v.snapshot.Edges)))
	return nil
}

func (v *LiveGraphView) replace(ctx context.Context) error {
	_, span := v.tracer.Start(ctx, "view.render", v.spanAttrs())
	defer span.End()
	start := time.Now()

	fail := func(op string, err error) error {
		err = domain.NewEngineError(op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := v.engine.ReplaceElements(v.snapshot); err != nil {
		return fail("replace elements", err)
	}
	if err := v.engine.RunLayout(v.layout); err != nil {
		return fail("layout", err)
	}
	if err := v.engine.FitToContents(); err != nil {
		return fail("fit", err)
	}
	v.applied = v.gen

	metrics.RenderPasses.WithLabelValues("replace").Inc()
	metrics.RenderDuration.WithLabelValues("replace").Observe(time.Since(start).Seconds())
	v.logger.Debug("graph view rendered",
		slog.Int("nodes", len(v.snapshot.Nodes)),
		slog.Int("edges", len(v.snapshot.Edges)))
	return nil
}

func (v *LiveGraphView) spanAttrs() trace.SpanStartEventOption {
	return trace.WithAttributes(
		attribute.Int("nodes", len(v.snapshot.Nodes)),
		attribute.Int("edges", len(v.snapshot.Edges)),
		attribute.String("layout", v.layout),
	)
}
