package ownerthread

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueueRunsTasksInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(4)
	go q.Run(ctx)

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 10; i++ {
		i := i
		q.Call(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("task order %v", got)
		}
	}
	if len(got) != 10 {
		t.Fatalf("ran %d tasks, want 10", len(got))
	}
}

func TestQueueCallFromManyGoroutines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(1)
	go q.Run(ctx)

	counter := 0 // 只在 UI 线程上访问
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Call(func() { counter++ })
		}()
	}
	wg.Wait()

	var final int
	q.Call(func() { final = counter })
	if final != 50 {
		t.Fatalf("counter=%d want 50", final)
	}
}

func TestQueuePostAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(1)
	stopped := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, err := q.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Post after stop err=%v", err)
	}

	ran := false
	q.Call(func() { ran = true })
	if ran {
		t.Fatal("Call ran a task on a stopped queue")
	}
}

func TestInlineRunsImmediately(t *testing.T) {
	ran := false
	Inline{}.Call(func() { ran = true })
	if !ran {
		t.Fatal("inline executor did not run fn")
	}
}
