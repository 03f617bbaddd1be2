// Package dispatch serializes scene mutations onto a single owner loop.
//
// Any goroutine may Enqueue commands. Exactly one goroutine (the Loop) drains
// them, one at a time and in arrival order, once per tick.
package dispatch

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/bhandras/avatarctl/internal/logger"
)

// Command is a deferred mutation executed exactly once on the owner loop.
type Command func() error

// Queue is an unbounded, multi-producer, single-consumer FIFO of commands.
//
// The queue is unbounded because producers are request handlers of a single
// local client; if this ever fronts many clients it needs a bound and an
// overflow policy.
type Queue struct {
	mu      sync.Mutex
	pending []Command
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a command. It never blocks; a nil command is ignored.
func (q *Queue) Enqueue(cmd Command) {
	if cmd == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()
}

// Len returns the number of commands waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DrainOnce runs queued commands until the queue is observed empty and returns
// how many ran. It must only be called from the owner loop.
//
// A failing or panicking command is logged and does not stop the drain.
func (q *Queue) DrainOnce() int {
	n := 0
	for {
		cmd, ok := q.pop()
		if !ok {
			return n
		}
		n++
		if err := run(cmd); err != nil {
			logger.Errorf("[dispatch] command failed: %v", err)
		}
	}
}

func (q *Queue) pop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	cmd := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	if len(q.pending) == 0 {
		// Drop the backing array so a burst does not pin memory.
		q.pending = nil
	}
	return cmd, true
}

func run(cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return cmd()
}
