package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// holdTask blocks until released and records its start.
type holdTask struct {
	started chan struct{}
	release chan struct{}
}

func newHoldTask() *holdTask {
	return &holdTask{started: make(chan struct{}), release: make(chan struct{})}
}

func (h *holdTask) run(context.Context) error {
	close(h.started)
	<-h.release
	return nil
}

func waitStarted(t *testing.T, h *holdTask) {
	t.Helper()
	select {
	case <-h.started:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not start in time")
	}
}

func assertNotStarted(t *testing.T, h *holdTask) {
	t.Helper()
	select {
	case <-h.started:
		t.Fatal("task started before a slot was free")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPoolCapsConcurrency(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	first, second, third := newHoldTask(), newHoldTask(), newHoldTask()
	ctx := context.Background()

	done1 := pool.Go(ctx, first.run)
	done2 := pool.Go(ctx, second.run)
	waitStarted(t, first)
	waitStarted(t, second)

	done3 := pool.Go(ctx, third.run)
	assertNotStarted(t, third)
	if got := pool.Active(); got != 2 {
		t.Fatalf("active = %d", got)
	}

	close(first.release)
	if err := <-done1; err != nil {
		t.Fatal(err)
	}
	waitStarted(t, third)

	close(second.release)
	close(third.release)
	if err := <-done2; err != nil {
		t.Fatal(err)
	}
	if err := <-done3; err != nil {
		t.Fatal(err)
	}
}

func TestLoweringCapNeverPreempts(t *testing.T) {
	pool := New(2)
	defer pool.Close()
	ctx := context.Background()

	first, second, fourth := newHoldTask(), newHoldTask(), newHoldTask()
	done1 := pool.Go(ctx, first.run)
	done2 := pool.Go(ctx, second.run)
	waitStarted(t, first)
	waitStarted(t, second)

	pool.SetMaxConcurrent(1)
	if got := pool.Active(); got != 2 {
		t.Fatalf("lowering the cap must not stop running tasks, active = %d", got)
	}

	done4 := pool.Go(ctx, fourth.run)
	assertNotStarted(t, fourth)

	// One completion is not enough: 1 active still meets the new cap.
	close(first.release)
	if err := <-done1; err != nil {
		t.Fatal(err)
	}
	assertNotStarted(t, fourth)

	close(second.release)
	if err := <-done2; err != nil {
		t.Fatal(err)
	}
	waitStarted(t, fourth)
	close(fourth.release)
	if err := <-done4; err != nil {
		t.Fatal(err)
	}
}

func TestRaisingCapAdmitsWaiters(t *testing.T) {
	pool := New(1)
	defer pool.Close()
	ctx := context.Background()

	first, second := newHoldTask(), newHoldTask()
	done1 := pool.Go(ctx, first.run)
	waitStarted(t, first)
	done2 := pool.Go(ctx, second.run)
	assertNotStarted(t, second)

	pool.SetMaxConcurrent(2)
	waitStarted(t, second)

	close(first.release)
	close(second.release)
	if err := <-done1; err != nil {
		t.Fatal(err)
	}
	if err := <-done2; err != nil {
		t.Fatal(err)
	}
}

func TestSubmitPropagatesTaskError(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	sentinel := errors.New("task failed")
	err := pool.Submit(context.Background(), func(context.Context) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	if got := pool.Active(); got != 0 {
		t.Fatalf("slot not released after failure, active = %d", got)
	}
}

func TestCancelledWaiterDoesNotBlockQueue(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	first := newHoldTask()
	done1 := pool.Go(context.Background(), first.run)
	waitStarted(t, first)

	waitCtx, cancel := context.WithCancel(context.Background())
	done2 := pool.Go(waitCtx, func(context.Context) error { return nil })
	cancel()
	if err := <-done2; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}

	// A later submission must still be admitted once the slot frees.
	third := newHoldTask()
	done3 := pool.Go(context.Background(), third.run)
	close(first.release)
	if err := <-done1; err != nil {
		t.Fatal(err)
	}
	waitStarted(t, third)
	close(third.release)
	if err := <-done3; err != nil {
		t.Fatal(err)
	}
}

func TestCloseRejectsSubmissions(t *testing.T) {
	pool := New(1)
	pool.Close()
	err := pool.Submit(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v", err)
	}
}

func TestPoolStress(t *testing.T) {
	pool := New(3)
	defer pool.Close()

	var (
		mu      sync.Mutex
		active  int
		highest int
	)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Submit(context.Background(), func(context.Context) error {
				mu.Lock()
				active++
				if active > highest {
					highest = active
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if highest > 3 {
		t.Fatalf("observed %d concurrent tasks with cap 3", highest)
	}
}
