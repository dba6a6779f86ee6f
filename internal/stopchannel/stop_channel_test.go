package stopchannel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopChannel(t *testing.T) {
	sc := New()
	assert.False(t, sc.Stopped())

	select {
	case <-sc.StopC():
		t.Fatal("should not be stopped")
	default:
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc.Stop()
		}()
	}
	wg.Wait()

	assert.True(t, sc.Stopped())
	<-sc.StopC()
}
