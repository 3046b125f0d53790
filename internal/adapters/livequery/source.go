// Package livequery re-runs the event log query whenever the log changes
// and re-delivers the full row set to every subscriber.
package livequery

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/metrics"
)

// RowReader runs the input query.
type RowReader interface {
	Rows(ctx context.Context) ([]domain.EventRow, error)
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// WithPollInterval sets the polling fallback interval. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(s *Source) {
		s.interval = d
	}
}

// WithWatchPath watches the database file (and its -wal/-shm siblings) for
// writes made by other processes.
func WithWatchPath(path string) Option {
	return func(s *Source) {
		s.watchPath = path
	}
}

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(s *Source) {
		s.buffer = n
	}
}

type subscriber struct {
	id  int64
	ctx context.Context
	ch  chan []domain.EventRow
}

// Source is a live query over a RowReader. All subscriber bookkeeping and
// broadcasting happens on the goroutine running Run.
type Source struct {
	reader    RowReader
	logger    *slog.Logger
	interval  time.Duration
	watchPath string
	buffer    int

	subscribe   chan *subscriber
	unsubscribe chan int64
	notify      chan struct{}
	done        chan struct{}
	ids         atomic.Int64

	// owned by Run
	subs   map[int64]*subscriber
	last   []domain.EventRow
	loaded bool
}

// Ensure Source implements ports.DataSource at compile time.
var _ ports.DataSource = (*Source)(nil)

// New creates a Source reading from reader. Call Run to start it.
func New(reader RowReader, opts ...Option) *Source {
	s := &Source{
		reader:      reader,
		logger:      slog.Default(),
		interval:    2 * time.Second,
		buffer:      16,
		subscribe:   make(chan *subscriber),
		unsubscribe: make(chan int64),
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		subs:        make(map[int64]*subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify asks the source to re-run the query, e.g. after an in-process
// write. It never blocks; notifications arriving while one is pending
// collapse into a single re-query, which still sees every change.
func (s *Source) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Subscribe registers a subscriber. The returned channel receives the
// current rows first, then the full row set after every change, and is
// closed when ctx ends or the source stops.
func (s *Source) Subscribe(ctx context.Context) (<-chan []domain.EventRow, error) {
	sub := &subscriber{
		id:  s.ids.Add(1),
		ctx: ctx,
		ch:  make(chan []domain.EventRow, s.buffer),
	}

	select {
	case s.subscribe <- sub:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, domain.ErrSourceClosed
	}

	go func() {
		select {
		case <-ctx.Done():
			select {
			case s.unsubscribe <- sub.id:
			case <-s.done:
			}
		case <-s.done:
		}
	}()

	return sub.ch, nil
}

// Run drives the source until ctx ends. Subscriber channels are closed on
// return.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.done)
	defer func() {
		for id, sub := range s.subs {
			close(sub.ch)
			delete(s.subs, id)
		}
	}()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if s.watchPath != "" {
		watcher, err := s.watch()
		if err != nil {
			return err
		}
		defer watcher.Close()
		events, errs = watcher.Events, watcher.Errors
	}

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.logger.Info("live query started",
		slog.String("watch", s.watchPath),
		slog.Duration("poll_interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("live query stopped")
			return nil

		case sub := <-s.subscribe:
			s.add(ctx, sub)

		case id := <-s.unsubscribe:
			s.remove(id)

		case <-s.notify:
			s.refresh(ctx)

		case <-tick:
			s.refresh(ctx)

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if s.relevant(event) {
				s.refresh(ctx)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Error("live query watch error", slog.String("error", err.Error()))
		}
	}
}

func (s *Source) watch() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: SQLite replaces and creates the -wal and -shm
	// files, which a watch on the database file alone would miss.
	dir := filepath.Dir(s.watchPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	s.logger.Info("watching event log for changes", slog.String("path", s.watchPath))
	return watcher, nil
}

func (s *Source) relevant(event fsnotify.Event) bool {
	if !strings.HasPrefix(filepath.Base(event.Name), filepath.Base(s.watchPath)) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (s *Source) add(ctx context.Context, sub *subscriber) {
	s.subs[sub.id] = sub

	if !s.loaded {
		rows, err := s.reader.Rows(ctx)
		if err != nil {
			metrics.SourceRefreshes.WithLabelValues("error").Inc()
			s.logger.Error("live query failed", slog.String("error", err.Error()))
			return
		}
		s.last, s.loaded = rows, true
	}

	s.logger.Debug("live query subscriber added", slog.Int64("subscriber", sub.id), slog.Int("rows", len(s.last)))
	s.send(ctx, sub, s.last)
}

func (s *Source) remove(id int64) {
	sub, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	close(sub.ch)
	s.logger.Debug("live query subscriber removed", slog.Int64("subscriber", id))
}

// refresh re-runs the query and broadcasts when the row set changed.
func (s *Source) refresh(ctx context.Context) {
	rows, err := s.reader.Rows(ctx)
	if err != nil {
		metrics.SourceRefreshes.WithLabelValues("error").Inc()
		s.logger.Error("live query failed", slog.String("error", err.Error()))
		return
	}

	if s.loaded && reflect.DeepEqual(rows, s.last) {
		metrics.SourceRefreshes.WithLabelValues("unchanged").Inc()
		return
	}
	s.last, s.loaded = rows, true
	metrics.SourceRefreshes.WithLabelValues("changed").Inc()

	for _, sub := range s.subs {
		s.send(ctx, sub, rows)
	}
}

// send delivers rows without dropping them. A subscriber whose context has
// ended is removed instead.
func (s *Source) send(ctx context.Context, sub *subscriber, rows []domain.EventRow) {
	select {
	case sub.ch <- rows:
	case <-sub.ctx.Done():
		s.remove(sub.id)
	case <-ctx.Done():
	}
}
