package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchOrder(t *testing.T) {
	d := NewDispatcher[int]()
	var got []string

	d.On("a", func(v int) { got = append(got, "first") })
	d.On("a", func(v int) { got = append(got, "second") })
	d.On("b", func(v int) { got = append(got, "b") })

	assert.True(t, d.Emit("a", 1))
	assert.Equal(t, []string{"first", "second"}, got)
	assert.True(t, d.Has("b"))
	assert.False(t, d.Has("c"))
}

func TestDefaultHandler(t *testing.T) {
	d := NewDispatcher[string]()

	assert.False(t, d.Emit("unknown", "x"))

	var got []string
	d.OnDefault(func(v string) { got = append(got, v) })
	d.On("known", func(string) {})

	assert.True(t, d.Emit("unknown", "x"))
	assert.True(t, d.Emit("known", "y"))
	assert.Equal(t, []string{"x"}, got)
}

func TestOffAndRemoveAll(t *testing.T) {
	d := NewDispatcher[int]()
	calls := 0

	d.On("a", func(int) { calls++ })
	d.OnDefault(func(int) { calls += 10 })

	d.Off("a")
	d.Emit("a", 0)
	assert.Equal(t, 10, calls)

	d.On("a", func(int) { calls++ })
	d.RemoveAll()
	assert.False(t, d.Emit("a", 0))
	assert.Equal(t, 10, calls)
}

func TestConcurrentSubscribe(t *testing.T) {
	d := NewDispatcher[int]()

	var mu sync.Mutex
	calls := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.On("a", func(int) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
			d.Emit("a", 0)
		}()
	}
	wg.Wait()

	calls = 0
	d.Emit("a", 0)
	assert.Equal(t, 20, calls)
}
