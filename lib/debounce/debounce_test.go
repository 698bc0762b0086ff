package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCallCollapsesToLast(t *testing.T) {
	d := New(30 * time.Millisecond)
	var calls int32
	var last int32

	for i := int32(1); i <= 5; i++ {
		v := i
		d.Call(func() {
			atomic.AddInt32(&calls, 1)
			atomic.StoreInt32(&last, v)
		})
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(5), atomic.LoadInt32(&last))
	assert.False(t, d.Pending())
}

func TestCancel(t *testing.T) {
	d := New(20 * time.Millisecond)
	var calls int32
	d.Call(func() { atomic.AddInt32(&calls, 1) })
	assert.True(t, d.Pending())
	d.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSeparatedCallsBothRun(t *testing.T) {
	d := New(10 * time.Millisecond)
	var calls int32
	d.Call(func() { atomic.AddInt32(&calls, 1) })
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 2*time.Millisecond)
	d.Call(func() { atomic.AddInt32(&calls, 1) })
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 2*time.Millisecond)
}
