// Package stopchannel provides an idempotent stop signal that can be observed
// through a channel.
package stopchannel

import "sync"

type StopChannel struct {
	once sync.Once
	c    chan struct{}
}

func New() *StopChannel {
	return &StopChannel{c: make(chan struct{})}
}

// Stop closes the channel. Calling it more than once is harmless.
func (sc *StopChannel) Stop() {
	sc.once.Do(func() {
		close(sc.c)
	})
}

// Stopped reports whether Stop has been called.
func (sc *StopChannel) Stopped() bool {
	select {
	case <-sc.c:
		return true
	default:
		return false
	}
}

// StopC returns the channel closed by Stop.
func (sc *StopChannel) StopC() <-chan struct{} {
	return sc.c
}
