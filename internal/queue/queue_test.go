package queue

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestQueueRunsJobs(t *testing.T) {
	q := NewRequestQueueManager(4, 2, nil)
	defer q.Shutdown()

	var ran int32
	for i := 0; i < 10; i++ {
		errc := make(chan error, 1)
		q.EnqueueJob(Job{
			Fn: func() error {
				atomic.AddInt32(&ran, 1)
				return nil
			},
			Errc: errc,
		})
		if err := <-errc; err != nil {
			t.Fatalf("job %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&ran); got != 10 {
		t.Fatalf("expected 10 jobs to run, got %d", got)
	}
}

func TestQueuePropagatesJobError(t *testing.T) {
	q := NewRequestQueueManager(1, 1, nil)
	defer q.Shutdown()

	want := errors.New("boom")
	errc := make(chan error, 1)
	q.EnqueueJob(Job{Fn: func() error { return want }, Errc: errc})
	if err := <-errc; !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewRequestQueueManager(1, 1, nil)
	q.Shutdown()
	q.Shutdown()

	errc := make(chan error, 1)
	q.EnqueueJob(Job{Fn: func() error { return nil }, Errc: errc})
	if err := <-errc; !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}
