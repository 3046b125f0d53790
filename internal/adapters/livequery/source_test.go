package livequery

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tjfontaine/dagview/internal/adapters/storage/sqlite"
	"github.com/tjfontaine/dagview/internal/core/domain"
)

type fakeReader struct {
	mu   sync.Mutex
	rows []domain.EventRow
	err  error
}

func (r *fakeReader) Rows(ctx context.Context) ([]domain.EventRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]domain.EventRow(nil), r.rows...), nil
}

func (r *fakeReader) set(rows ...domain.EventRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = rows
}

func receive(t *testing.T, ch <-chan []domain.EventRow) []domain.EventRow {
	t.Helper()
	select {
	case rows, ok := <-ch:
		if !ok {
			t.Fatal("channel closed, want rows")
		}
		return rows
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rows")
	}
	return nil
}

func startSource(t *testing.T, s *Source) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Run(ctx); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestSource_DeliversInitialAndChanges(t *testing.T) {
	reader := &fakeReader{}
	reader.set(domain.EventRow{EventID: 1, Type: domain.EventCreate})

	s := New(reader, WithPollInterval(0))
	startSource(t, s)

	ch, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if rows := receive(t, ch); len(rows) != 1 {
		t.Fatalf("initial rows = %d, want 1", len(rows))
	}

	// Unchanged data is not re-delivered.
	s.Notify()

	reader.set(
		domain.EventRow{EventID: 1, Type: domain.EventCreate},
		domain.EventRow{EventID: 2, ParentID: domain.Parent(1), Type: domain.EventUpdate},
	)
	s.Notify()

	rows := receive(t, ch)
	if len(rows) != 2 {
		t.Fatalf("rows after change = %d, want 2", len(rows))
	}
	if rows[1].ParentID != domain.Parent(1) {
		t.Errorf("rows[1].ParentID = %+v, want parent 1", rows[1].ParentID)
	}
}

func TestSource_EveryChangeDeliveredInOrder(t *testing.T) {
	reader := &fakeReader{}
	s := New(reader, WithPollInterval(0))
	startSource(t, s)

	ch, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if rows := receive(t, ch); len(rows) != 0 {
		t.Fatalf("initial rows = %d, want 0", len(rows))
	}

	var want []domain.EventRow
	for i := int64(1); i <= 5; i++ {
		want = append(want, domain.EventRow{EventID: i, Type: domain.EventCreate})
		reader.set(want...)
		s.Notify()
		if rows := receive(t, ch); len(rows) != int(i) {
			t.Fatalf("delivery %d has %d rows", i, len(rows))
		}
	}
}

func TestSource_UnsubscribeClosesChannel(t *testing.T) {
	s := New(&fakeReader{}, WithPollInterval(0))
	startSource(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	receive(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received rows after unsubscribe")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestSource_StopClosesSubscribers(t *testing.T) {
	s := New(&fakeReader{}, WithPollInterval(0))
	stop := startSource(t, s)

	ch, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	receive(t, ch)
	stop()

	for range ch {
	}

	if _, err := s.Subscribe(context.Background()); !errors.Is(err, domain.ErrSourceClosed) {
		t.Errorf("Subscribe() after stop error = %v, want ErrSourceClosed", err)
	}
}

func TestSource_SeesExternalWrites(t *testing.T) {
	tests := []struct {
		name     string
		watch    bool
		interval time.Duration
	}{
		{name: "watch and poll", watch: true, interval: 50 * time.Millisecond},
		{name: "watch only", watch: true, interval: 0},
		{name: "poll only", watch: false, interval: 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.db")
			store, err := sqlite.New(path)
			if err != nil {
				t.Fatalf("sqlite.New() error = %v", err)
			}
			defer store.Close()

			// A second handle stands in for another process writing to the log.
			writer, err := sqlite.New(path)
			if err != nil {
				t.Fatalf("sqlite.New() error = %v", err)
			}
			defer writer.Close()

			opts := []Option{WithPollInterval(tt.interval)}
			if tt.watch {
				opts = append(opts, WithWatchPath(path))
			}
			s := New(store, opts...)
			startSource(t, s)

			ch, err := s.Subscribe(context.Background())
			if err != nil {
				t.Fatalf("Subscribe() error = %v", err)
			}
			if rows := receive(t, ch); len(rows) != 0 {
				t.Fatalf("initial rows = %d, want 0", len(rows))
			}

			items := []string{"abc", "def", "ghi"}
			for i, item := range items {
				ev := &domain.NewEvent{ItemID: item, Type: domain.EventCreate, Value: "v"}
				if _, err := writer.Append(context.Background(), ev); err != nil {
					t.Fatalf("Append() error = %v", err)
				}

				rows := receive(t, ch)
				if len(rows) != i+1 || rows[i].ItemID != item {
					t.Fatalf("rows after append %d = %+v, want %d ending in %q", i+1, rows, i+1, item)
				}
			}
		})
	}
}
