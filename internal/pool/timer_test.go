package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerPool(t *testing.T) {
	assert := assert.New(t)

	t.Run("Get and Put", func(t *testing.T) {
		timer1 := GetTimer(10 * time.Millisecond)
		assert.NotNil(timer1)

		PutTimer(timer1)

		timer2 := GetTimer(20 * time.Millisecond)
		assert.NotNil(timer2)

		<-timer2.C
	})

	t.Run("Put Active Timer", func(t *testing.T) {
		timer1 := GetTimer(100 * time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		PutTimer(timer1)

		begin := time.Now()
		timer2 := GetTimer(200 * time.Millisecond)

		select {
		case tt := <-timer2.C:
			assert.GreaterOrEqual(tt.Sub(begin), 180*time.Millisecond)
		case <-time.After(time.Second):
			t.Error("timer2 should have fired")
		}
	})

	t.Run("Concurrency", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				timer := GetTimer(5 * time.Millisecond)
				defer PutTimer(timer)
				<-timer.C
			}()
		}
		wg.Wait()
	})
}

func TestSleep(t *testing.T) {
	assert := assert.New(t)

	t.Run("Elapses", func(t *testing.T) {
		begin := time.Now()
		assert.True(Sleep(nil, 30*time.Millisecond))
		assert.GreaterOrEqual(time.Since(begin), 25*time.Millisecond)
	})

	t.Run("Interrupted", func(t *testing.T) {
		done := make(chan struct{})
		go func() {
			time.Sleep(20 * time.Millisecond)
			close(done)
		}()

		begin := time.Now()
		assert.False(Sleep(done, 5*time.Second))
		assert.Less(time.Since(begin), time.Second)
	})

	t.Run("ZeroDuration", func(t *testing.T) {
		assert.True(Sleep(nil, 0))

		done := make(chan struct{})
		close(done)
		assert.False(Sleep(done, 0))
	})
}
