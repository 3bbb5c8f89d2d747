package poll

import (
	"sync"
	"time"
)

// Handle stops a recurring task. Safe to call more than once.
type Handle func()

// RunEvery invokes fn on a fixed interval until the handle is called. This is
// the only wake-up mechanism the engine has; every recurring behavior (queue
// ticks, conversation polling) owns one handle and stops it deterministically.
func RunEvery(interval time.Duration, fn func()) Handle {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
