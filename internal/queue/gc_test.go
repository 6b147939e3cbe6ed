package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockDLQPurger struct {
	calls     atomic.Int32
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
}

func (m *mockDLQPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	m.calls.Add(1)
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}
	return 0, nil
}

var _ DLQPurger = (*mockDLQPurger)(nil)

func TestGarbageCollector_Collect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		purger     *mockDLQPurger
		wantErr    bool
		wantPurged int64
	}{
		{name: "nil purger is a no-op"},
		{
			name: "counts purged messages",
			purger: &mockDLQPurger{purgeFunc: func(_ context.Context, retention time.Duration) (int, error) {
				if retention != 24*time.Hour {
					return 0, errors.New("unexpected retention")
				}
				return 3, nil
			}},
			wantPurged: 3,
		},
		{
			name: "partial purge is counted and reported",
			purger: &mockDLQPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
				return 2, errors.New("channel closed")
			}},
			wantErr:    true,
			wantPurged: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var purger DLQPurger
			if tt.purger != nil {
				purger = tt.purger
			}
			gc := NewGarbageCollector(purger, time.Minute, 24*time.Hour, nil)

			err := gc.collect(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("collect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := gc.Purged(); got != tt.wantPurged {
				t.Errorf("Purged() = %d, want %d", got, tt.wantPurged)
			}
		})
	}
}

func TestGarbageCollector_Start_RunsImmediately(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	mock := &mockDLQPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
		cancel()
		return 1, nil
	}}
	gc := NewGarbageCollector(mock, 24*time.Hour, time.Hour, nil)

	if err := gc.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
	if mock.calls.Load() != 1 {
		t.Errorf("Expected one pass before the first tick, got %d", mock.calls.Load())
	}
}

func TestGarbageCollector_Start_SkipsWhenCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := &mockDLQPurger{}
	gc := NewGarbageCollector(mock, 24*time.Hour, time.Hour, nil)

	if err := gc.Start(ctx); err == nil {
		t.Error("Expected context error")
	}
	if mock.calls.Load() != 0 {
		t.Error("Expected no purge after cancellation")
	}
}
