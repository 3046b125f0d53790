// Package runtime wires the event store, the live query and the HTTP
// surface into a running viewer.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/dagview/internal/adapters/engine/svg"
	"github.com/tjfontaine/dagview/internal/adapters/engine/term"
	"github.com/tjfontaine/dagview/internal/adapters/livequery"
	"github.com/tjfontaine/dagview/internal/adapters/storage/sqlite"
	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/graph"
	"github.com/tjfontaine/dagview/internal/layout"
	"github.com/tjfontaine/dagview/internal/pkg/config"
	"github.com/tjfontaine/dagview/internal/registration"
	"github.com/tjfontaine/dagview/internal/server"
)

// serverShutdownTimeout bounds how long Shutdown waits for open requests.
const serverShutdownTimeout = 5 * time.Second

// Viewer serves live graph views of an event log.
type Viewer struct {
	// Dependencies (injected via options)
	cfg       *config.Config
	store     ports.EventStore
	watchPath string
	layouts   *layout.Registry
	engines   ports.EngineFactory
	logger    *slog.Logger

	// Internal state
	source *livequery.Source
	server *server.Server
	addr   net.Addr

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	mu     sync.Mutex
}

// New creates a Viewer. Without WithSQLite or WithStore, the database at
// storage.sqlite.path is opened.
func New(opts ...Option) (*Viewer, error) {
	v := &Viewer{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if v.cfg == nil {
		return nil, fmt.Errorf("config required (use WithConfig or WithFileConfig)")
	}
	if v.store == nil {
		store, err := sqlite.New(v.cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("create sqlite storage: %w", err)
		}
		v.store = store
		v.watchPath = store.Path()
	}
	if v.layouts == nil {
		v.layouts = registration.Layouts()
	}
	if _, err := v.layouts.Lookup(v.cfg.Viewer.Layout); err != nil {
		return nil, fmt.Errorf("viewer layout: %w", err)
	}
	if v.engines == nil {
		v.engines = svg.NewFactory(v.layouts)
	}

	srcOpts := []livequery.Option{
		livequery.WithLogger(v.logger),
		livequery.WithPollInterval(v.cfg.Source.PollInterval),
	}
	if v.cfg.Source.Watch && v.watchPath != "" {
		srcOpts = append(srcOpts, livequery.WithWatchPath(v.watchPath))
	}
	v.source = livequery.New(v.store, srcOpts...)

	v.server = server.New(v.cfg.Server.Port, v.logger)
	v.routes(v.server)

	return v, nil
}

// Start begins watching the event log and serving HTTP. It returns once the
// listener is bound; use Wait or Shutdown to stop.
func (v *Viewer) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.group != nil {
		return fmt.Errorf("viewer already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", v.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	v.addr = ln.Addr()

	v.ctx, v.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(v.ctx)
	v.group = g

	g.Go(func() error {
		return v.source.Run(gctx)
	})
	g.Go(func() error {
		return v.server.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return v.server.Shutdown(sctx)
	})

	v.logger.Info("viewer started",
		slog.String("addr", v.addr.String()),
		slog.String("layout", v.cfg.Viewer.Layout),
		slog.String("name", v.cfg.Viewer.Name))

	return nil
}

// Addr returns the bound listener address after Start.
func (v *Viewer) Addr() net.Addr {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.addr
}

// Wait blocks until the viewer stops and returns the first failure.
func (v *Viewer) Wait() error {
	v.mu.Lock()
	g := v.group
	v.mu.Unlock()

	if g == nil {
		return fmt.Errorf("viewer not started")
	}
	return g.Wait()
}

// Shutdown stops serving, ends every live stream and closes the store.
func (v *Viewer) Shutdown(ctx context.Context) error {
	v.mu.Lock()
	cancel, g := v.cancel, v.group
	v.mu.Unlock()

	v.logger.Info("shutting down viewer")

	var errs []error
	if cancel != nil {
		cancel()

		done := make(chan error, 1)
		go func() { done <- g.Wait() }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if err := v.store.Close(); err != nil {
		v.logger.Error("failed to close storage", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	v.logger.Info("viewer shutdown complete")
	return errors.Join(errs...)
}

// Snapshot builds the graph for the current contents of the event log.
func (v *Viewer) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	rows, err := v.store.Rows(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read events: %w", err)
	}
	return graph.Build(rows), nil
}

// Append adds an event to the log and wakes the live query.
func (v *Viewer) Append(ctx context.Context, ev *domain.NewEvent) (int64, error) {
	id, err := v.store.Append(ctx, ev)
	if err != nil {
		return 0, err
	}
	v.source.Notify()
	return id, nil
}

// Close releases the store of a viewer that was never started.
func (v *Viewer) Close() error {
	return v.store.Close()
}

func (v *Viewer) terminalEngines() ports.EngineFactory {
	return term.NewFactory(v.layouts)
}
