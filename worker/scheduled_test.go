package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduledRunsAtStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	w := &Scheduled{
		Name:     "collect",
		Schedule: "@every 1h",
		Job: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			cancel()
			return errors.New("logged, not returned")
		},
		RunAtStart: true,
	}
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if atomic.LoadInt32(&runs) != 1 {
		t.Errorf("expected one run, got %d", runs)
	}
}

func TestScheduledRejectsBadSchedule(t *testing.T) {
	w := &Scheduled{Name: "collect", Schedule: "every now and then", Job: func(context.Context) error { return nil }}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
}

type blockingWorker struct{ stopped chan struct{} }

func (b *blockingWorker) Start(ctx context.Context) error {
	<-ctx.Done()
	close(b.stopped)
	return nil
}

func TestManagerStopsOthersOnError(t *testing.T) {
	bw := &blockingWorker{stopped: make(chan struct{})}
	bad := &Scheduled{Name: "bad", Schedule: "nonsense", Job: func(context.Context) error { return nil }}
	m := NewManager(bw, bad)

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background()) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from failing worker")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not return")
	}
	select {
	case <-bw.stopped:
	default:
		t.Error("blocking worker was not cancelled")
	}
}
