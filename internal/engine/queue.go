package engine

import (
	"sync"

	"tickflow/pkg/logger"
)

// SerialQueue runs enqueued tasks strictly in FIFO order with no two tasks
// overlapping. One instance per coin engine serializes its decision cycles
// against each other regardless of which timer or callback enqueued them.
type SerialQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	running bool
}

func NewSerialQueue() *SerialQueue {
	q := &SerialQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends the task; if no drain loop is active one is started.
func (q *SerialQueue) Enqueue(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go q.drain()
}

func (q *SerialQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.cond.Broadcast()
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		runTask(task)
	}
}

// A panicking task must not kill the drain loop; it is logged and the next
// task runs.
func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Queue task panicked.", logger.Pair("panic", r))
		}
	}()
	task()
}

// Wait blocks until the queue is empty and no task is running.
func (q *SerialQueue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.running || len(q.tasks) > 0 {
		q.cond.Wait()
	}
}

// Len reports queued (not yet started) tasks.
func (q *SerialQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
