package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSerialQueueFIFO(t *testing.T) {
	q := NewSerialQueue()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		q.Enqueue(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.Wait()

	if len(got) != 10 {
		t.Fatalf("ran %d tasks, want 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task order %v, want ascending", got)
		}
	}
}

func TestSerialQueueNoOverlap(t *testing.T) {
	q := NewSerialQueue()

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(func() {
				n := atomic.AddInt32(&active, 1)
				if n > atomic.LoadInt32(&peak) {
					atomic.StoreInt32(&peak, n)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()
	q.Wait()

	if p := atomic.LoadInt32(&peak); p != 1 {
		t.Fatalf("peak concurrency %d, want 1", p)
	}
}

func TestSerialQueueEachTaskRunsOnce(t *testing.T) {
	q := NewSerialQueue()

	var runs int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(func() { atomic.AddInt64(&runs, 1) })
		}()
	}
	wg.Wait()
	q.Wait()

	if runs != 50 {
		t.Fatalf("ran %d tasks, want 50", runs)
	}
}

func TestSerialQueueSurvivesPanic(t *testing.T) {
	q := NewSerialQueue()

	ran := false
	q.Enqueue(func() { panic("boom") })
	q.Enqueue(func() { ran = true })
	q.Wait()

	if !ran {
		t.Fatal("task after panicking task did not run")
	}
}

func TestSerialQueueWaitOnIdleQueue(t *testing.T) {
	q := NewSerialQueue()

	done := make(chan struct{})
	go func() {
		q.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked on an idle queue")
	}
}
