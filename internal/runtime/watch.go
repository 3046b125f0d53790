package runtime

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/view"
)

// terminalSurface presents frames on a terminal of fixed size in cells.
type terminalSurface struct {
	w        io.Writer
	size     ports.Size
	acquired bool
}

func (s *terminalSurface) Acquire() (ports.Container, error) {
	if s.acquired {
		return nil, fmt.Errorf("terminal already acquired")
	}
	s.acquired = true
	return s, nil
}

func (s *terminalSurface) Release(ports.Container) error {
	s.acquired = false
	return nil
}

func (s *terminalSurface) Size() ports.Size {
	return s.size
}

func (s *terminalSurface) Draw(frame []byte) error {
	_, err := s.w.Write(frame)
	return err
}

// Watch renders the live graph to w as text until ctx ends. It runs the
// live query itself and cannot be combined with Start.
func (v *Viewer) Watch(ctx context.Context, w io.Writer) error {
	v.mu.Lock()
	if v.group != nil {
		v.mu.Unlock()
		return fmt.Errorf("viewer already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	v.ctx, v.cancel, v.group = ctx, cancel, g
	v.mu.Unlock()

	g.Go(func() error {
		return v.source.Run(gctx)
	})
	g.Go(func() error {
		// The live query has nothing to serve once the view is gone.
		defer cancel()

		rows, err := v.source.Subscribe(gctx)
		if err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}

		surface := &terminalSurface{
			w: w,
			size: ports.Size{
				Width:  float64(v.cfg.Terminal.Width),
				Height: float64(v.cfg.Terminal.Height),
			},
		}
		mounts := make(chan struct{}, 1)
		mounts <- struct{}{}

		gv := view.New(v.terminalEngines(), surface,
			view.WithLogger(v.logger),
			view.WithLayout(v.cfg.Viewer.Layout))
		return gv.Run(gctx, rows, mounts)
	})

	return g.Wait()
}
