package queue

import "sync"

// Task is a pending send action
type Task func()

// DispatchQueue is a strict FIFO of send actions used by clients in
// synchronous mode. At most one task is started per call of Add (when idle)
// or Next; the owner calls Next once the reply to the running task has been
// processed, so only one send is in flight at any time.
type DispatchQueue struct {
	mu      sync.Mutex
	tasks   []Task
	running bool
	stopped bool
}

// New creates an empty, idle queue
func New() *DispatchQueue {
	return &DispatchQueue{}
}

// Add appends tasks in call order. If the queue is idle and not stopped, the
// head task is started immediately on the calling goroutine.
func (q *DispatchQueue) Add(tasks ...Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, tasks...)
	if q.running || q.stopped {
		q.mu.Unlock()
		return
	}
	task := q.popLocked()
	q.mu.Unlock()

	if task != nil {
		task()
	}
}

// Next starts the next task. If there is none, or the queue is stopped, the
// queue becomes idle.
func (q *DispatchQueue) Next() {
	q.mu.Lock()
	task := q.popLocked()
	q.mu.Unlock()

	// run outside of the lock, a task may call Add
	if task != nil {
		task()
	}
}

// popLocked removes the head task and marks the queue running, or marks it
// idle if nothing can be started
func (q *DispatchQueue) popLocked() Task {
	if len(q.tasks) == 0 || q.stopped {
		q.running = false
		return nil
	}

	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.running = true
	return task
}

// Clear drops all pending tasks and marks the queue idle. It does not resume
// draining, the next Add does.
func (q *DispatchQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.running = false
	q.tasks = nil
}

// Stop prevents the queue from starting further tasks. Add still accepts tasks.
func (q *DispatchQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
}

// Resume lifts a previous Stop and starts the head task if the queue is idle
func (q *DispatchQueue) Resume() {
	q.mu.Lock()
	q.stopped = false
	if q.running {
		q.mu.Unlock()
		return
	}
	task := q.popLocked()
	q.mu.Unlock()

	if task != nil {
		task()
	}
}

// Len returns the number of pending tasks
func (q *DispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Running reports whether a task was started and Next has not been called since
func (q *DispatchQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.running
}
