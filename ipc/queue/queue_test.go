package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recorder collects the order in which tasks run
type recorder struct {
	mu  sync.Mutex
	ran []int
}

func (r *recorder) task(i int) Task {
	return func() {
		r.mu.Lock()
		r.ran = append(r.ran, i)
		r.mu.Unlock()
	}
}

func (r *recorder) order() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.ran...)
}

func TestAddStartsHeadWhenIdle(t *testing.T) {
	q := New()
	r := &recorder{}

	q.Add(r.task(1))
	assert.Equal(t, []int{1}, r.order())
	assert.True(t, q.Running())

	// running: further tasks wait for Next
	q.Add(r.task(2), r.task(3))
	assert.Equal(t, []int{1}, r.order())
	assert.Equal(t, 2, q.Len())
}

func TestNextDrainsInOrder(t *testing.T) {
	q := New()
	r := &recorder{}

	q.Add(r.task(1), r.task(2), r.task(3))
	assert.Equal(t, []int{1}, r.order())

	q.Next()
	q.Next()
	assert.Equal(t, []int{1, 2, 3}, r.order())
	assert.True(t, q.Running())

	// empty queue becomes idle
	q.Next()
	assert.False(t, q.Running())

	// idle again: Add starts right away
	q.Add(r.task(4))
	assert.Equal(t, []int{1, 2, 3, 4}, r.order())
}

func TestClear(t *testing.T) {
	q := New()
	r := &recorder{}

	q.Add(r.task(1), r.task(2), r.task(3))
	q.Clear()
	assert.False(t, q.Running())
	assert.Equal(t, 0, q.Len())

	// Clear does not resume on its own
	q.Next()
	assert.Equal(t, []int{1}, r.order())

	q.Add(r.task(4))
	assert.Equal(t, []int{1, 4}, r.order())
}

func TestStop(t *testing.T) {
	q := New()
	r := &recorder{}

	q.Stop()
	q.Add(r.task(1), r.task(2))
	q.Next()
	assert.Empty(t, r.order())
	assert.Equal(t, 2, q.Len())
	assert.False(t, q.Running())

	q.Resume()
	assert.Equal(t, []int{1}, r.order())
	q.Next()
	assert.Equal(t, []int{1, 2}, r.order())
}

func TestTaskMayAdd(t *testing.T) {
	q := New()
	r := &recorder{}

	q.Add(func() {
		r.task(1)()
		q.Add(r.task(2))
	})
	assert.Equal(t, []int{1}, r.order())

	q.Next()
	assert.Equal(t, []int{1, 2}, r.order())
}

func TestConcurrentAddStartsOneTask(t *testing.T) {
	q := New()
	r := &recorder{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Add(r.task(i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.order(), 1)
	assert.Equal(t, 49, q.Len())

	for q.Len() > 0 {
		q.Next()
	}
	assert.Len(t, r.order(), 50)
}
