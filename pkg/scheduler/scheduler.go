// Package scheduler wraps recurring timers behind an interface so the
// engines can be driven by virtual time in tests.
package scheduler

import (
	"sync"
	"time"
)

// TaskHandle cancels one recurring task. Stop is idempotent.
type TaskHandle interface {
	Stop()
}

// Scheduler runs fn every interval until the returned handle is stopped.
type Scheduler interface {
	Every(interval time.Duration, fn func()) TaskHandle
}

// Ticker is the wall-clock implementation.
type Ticker struct{}

func NewTicker() *Ticker { return &Ticker{} }

func (s *Ticker) Every(interval time.Duration, fn func()) TaskHandle {
	t := &tickerTask{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				fn()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTask) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

// Manual fires tasks only when told to. Tick runs every live task once, in
// registration order, on the caller's goroutine.
type Manual struct {
	mu    sync.Mutex
	tasks []*manualTask
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) Every(interval time.Duration, fn func()) TaskHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

func (m *Manual) Tick() {
	m.mu.Lock()
	tasks := make([]*manualTask, len(m.tasks))
	copy(tasks, m.tasks)
	m.mu.Unlock()

	for _, t := range tasks {
		if !t.stopped() {
			t.fn()
		}
	}
}

// Pending reports how many tasks are still live.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped() {
			n++
		}
	}
	return n
}

type manualTask struct {
	mu      sync.Mutex
	fn      func()
	stopFlg bool
}

func (t *manualTask) Stop() {
	t.mu.Lock()
	t.stopFlg = true
	t.mu.Unlock()
}

func (t *manualTask) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopFlg
}
