package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/driftwatch/internal/domain/model"
)

func job(team string) Job {
	return Job{ID: model.JobID("2026-10-17", model.JobDetect, team), Kind: model.JobDetect, Cycle: "2026-10-17", TeamID: team}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if !q.Enqueue(ctx, job("team-a")) {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.TeamID != "team-a" || j.ID != "2026-10-17|detect|team-a" {
		t.Errorf("unexpected job %+v", j)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("a")) || !q.Enqueue(ctx, job("b")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("c")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	q.Enqueue(ctx, job("a"))

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Fatal("expected closed")
	}
	if q.Enqueue(ctx, job("b")) {
		t.Error("expected enqueue on closed queue to fail")
	}

	// Buffered jobs drain before the channel closes.
	var got []string
	for j := range q.Dequeue(ctx) {
		got = append(got, j.TeamID)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("expected [a], got %v", got)
	}
}

func TestInMemoryQueue_CancelledDequeueFailsJob(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	j := job("a")
	j.Done = func(err error) { errCh <- err }
	q.Enqueue(context.Background(), j)

	cancel()
	out := q.Dequeue(ctx)

	select {
	case got, ok := <-out:
		// The forwarder may win the race and deliver before noticing cancellation.
		if ok {
			got.Done(nil)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not finish")
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("job was neither delivered nor failed")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue(ctx, job(fmt.Sprintf("team-%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	if l := q.Len(ctx); l != 500 {
		t.Fatalf("expected 500 queued jobs, got %d", l)
	}
	_ = q.Close()

	seen := make(map[string]bool)
	for j := range q.Dequeue(ctx) {
		seen[j.TeamID] = true
	}
	if len(seen) != 500 {
		t.Errorf("expected 500 distinct jobs, got %d", len(seen))
	}
}
