package listing

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerOnlyLastFires(t *testing.T) {
	d := NewDebouncer(15 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Value

	for _, q := range []string{"a", "ab", "abc"} {
		d.Schedule(func() {
			calls.Add(1)
			last.Store(q)
		})
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "abc", last.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerStopAndFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var calls atomic.Int32

	d.Schedule(func() { calls.Add(1) })
	assert.True(t, d.Pending())
	assert.True(t, d.Stop())
	assert.False(t, d.Flush())
	assert.Equal(t, int32(0), calls.Load())

	d.Schedule(func() { calls.Add(1) })
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Stop())
}
