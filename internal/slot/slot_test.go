package slot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetReleasesPrevious(t *testing.T) {
	var released []string
	s := New(func(v string) { released = append(released, v) })

	s.Set("first")
	assert.Empty(t, released, "nothing to release on first Set")

	s.Set("second")
	assert.Equal(t, []string{"first"}, released)

	v, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestClear(t *testing.T) {
	var released []int
	s := New(func(v int) { released = append(released, v) })

	s.Clear()
	assert.Empty(t, released, "clearing an empty slot releases nothing")

	s.Set(1)
	s.Clear()
	assert.Equal(t, []int{1}, released)
	assert.False(t, s.Occupied())

	v, ok := s.Get()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestZeroValueSlot(t *testing.T) {
	var s Slot[*int]
	n := 3
	s.Set(&n)
	got, ok := s.Get()
	assert.True(t, ok)
	assert.Same(t, &n, got)
	s.Set(nil)
	assert.True(t, s.Occupied(), "nil is a value like any other")
}

func TestReleaseMayReenterSlot(t *testing.T) {
	var s *Slot[string]
	s = New(func(string) {
		// would deadlock if release ran under the lock
		_, _ = s.Get()
	})
	s.Set("a")
	s.Set("b")
}

func TestConcurrentSetReleasesEachOnce(t *testing.T) {
	var mu sync.Mutex
	counts := map[int]int{}
	s := New(func(v int) {
		mu.Lock()
		counts[v]++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Set(i)
		}(i)
	}
	wg.Wait()
	s.Clear()

	assert.Len(t, counts, 100)
	for v, n := range counts {
		assert.Equal(t, 1, n, "value %d released %d times", v, n)
	}
}

func TestClearIf(t *testing.T) {
	var released []int
	s := New(func(v int) { released = append(released, v) })

	assert.False(t, s.ClearIf(func(int) bool { return true }), "empty slot")

	s.Set(3)
	assert.False(t, s.ClearIf(func(v int) bool { return v == 4 }))
	assert.True(t, s.Occupied())

	assert.True(t, s.ClearIf(func(v int) bool { return v == 3 }))
	assert.False(t, s.Occupied())
	assert.Equal(t, []int{3}, released)
}
