package runtime

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/server"
	"github.com/tjfontaine/dagview/internal/view"
)

// sseSurface is a browser connection used as a rendering surface. Every
// frame is sent as a Server-Sent Event named "frame".
type sseSurface struct {
	ctx      context.Context
	w        http.ResponseWriter
	flusher  http.Flusher
	size     ports.Size
	mounted  bool
	acquired bool
}

var (
	_ ports.MountPoint = (*sseSurface)(nil)
	_ ports.Container  = (*sseSurface)(nil)
)

// mount sends the stream preamble. Until then the surface is unavailable.
func (s *sseSurface) mount() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	fmt.Fprint(s.w, ": connected\n\n")
	s.flusher.Flush()
	s.mounted = true
}

func (s *sseSurface) Acquire() (ports.Container, error) {
	if !s.mounted || s.ctx.Err() != nil {
		return nil, domain.ErrNoMount
	}
	if s.acquired {
		return nil, fmt.Errorf("stream surface already acquired")
	}
	s.acquired = true
	return s, nil
}

func (s *sseSurface) Release(c ports.Container) error {
	if c != ports.Container(s) || !s.acquired {
		return fmt.Errorf("release of a surface not acquired here")
	}
	s.acquired = false
	return nil
}

func (s *sseSurface) Size() ports.Size {
	return s.size
}

func (s *sseSurface) Draw(frame []byte) error {
	if err := writeEvent(s.w, "frame", frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// writeEvent writes one SSE event, one data line per line of payload.
// CRLF and lone CR count as line breaks, as they do for SSE clients.
func writeEvent(w http.ResponseWriter, name string, payload []byte) error {
	payload = bytes.ReplaceAll(payload, []byte("\r\n"), []byte("\n"))
	payload = bytes.ReplaceAll(payload, []byte("\r"), []byte("\n"))

	var buf bytes.Buffer
	buf.WriteString("event: " + name + "\n")
	for _, line := range bytes.Split(payload, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// handleStream runs one live graph view per connection until the client
// leaves or the viewer stops.
func (v *Viewer) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	rows, err := v.source.Subscribe(ctx)
	if err != nil {
		server.AddError(ctx, err)
		writeError(w, http.StatusServiceUnavailable, "event log unavailable")
		return
	}

	logger := v.logger.With(slog.String("request_id", server.GetRequestID(ctx)))
	surface := &sseSurface{
		ctx:     ctx,
		w:       w,
		flusher: flusher,
		size: ports.Size{
			Width:  float64(v.cfg.Viewer.Width),
			Height: float64(v.cfg.Viewer.Height),
		},
	}
	gv := view.New(v.engines, surface,
		view.WithLogger(logger),
		view.WithLayout(v.cfg.Viewer.Layout))

	mounts := make(chan struct{}, 1)
	surface.mount()
	mounts <- struct{}{}

	if err := gv.Run(ctx, rows, mounts); err != nil {
		server.AddError(ctx, err)
		if ctx.Err() == nil {
			logger.Error("graph view failed", slog.String("error", err.Error()))
		}
	}
}
