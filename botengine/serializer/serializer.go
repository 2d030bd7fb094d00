// Package serializer provides per-key FIFO task execution.
//
// Tasks enqueued under the same key run strictly one at a time in arrival
// order; tasks under different keys run concurrently. The orchestrator keys
// tasks by conversation ID so replies never interleave within a chat while
// unrelated chats proceed in parallel.
package serializer

import (
	"runtime/debug"
	"sync"
)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Queue chains tasks per key. The zero value is not usable; use New.
type Queue struct {
	logger Logger

	mu      sync.Mutex
	tails   map[string]chan struct{}
	pending map[string]int
}

func New(logger Logger) *Queue {
	return &Queue{
		logger:  logger,
		tails:   make(map[string]chan struct{}),
		pending: make(map[string]int),
	}
}

// Enqueue appends task to the chain for key and returns immediately. The
// task runs on its own goroutine once every earlier task for the same key
// has finished. A panicking task is logged and does not break the chain.
func (q *Queue) Enqueue(key string, task func()) {
	q.mu.Lock()
	prev := q.tails[key]
	done := make(chan struct{})
	q.tails[key] = done
	q.pending[key]++
	q.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		q.run(key, task)
		q.release(key, done)
	}()
}

func (q *Queue) run(key string, task func()) {
	defer func() {
		if r := recover(); r != nil {
			if q.logger != nil {
				q.logger.Error("task_panic_recovered",
					"key", key,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}
	}()
	task()
}

// release drops the chain entry once the last task for a key has drained,
// so idle conversations do not accumulate map entries.
func (q *Queue) release(key string, done chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[key]--
	if q.pending[key] == 0 {
		delete(q.pending, key)
		if q.tails[key] == done {
			delete(q.tails, key)
		}
	}
}

// Pending returns how many tasks are queued or running for key.
func (q *Queue) Pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[key]
}

// ActiveKeys returns how many keys currently have tasks in flight.
func (q *Queue) ActiveKeys() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
