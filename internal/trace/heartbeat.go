package trace

import (
	"strconv"
	"sync"
	"time"
)

// StartHeartbeat emits a heartbeat event every interval until the returned
// stop function is called. A run of heartbeats with no span ends in between
// usually means a store call is blocked. It returns a no-op stop when t is
// disabled or interval is not positive.
func StartHeartbeat(t Tracer, interval time.Duration) (stop func()) {
	if !Enabled(t) || interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for beat := 1; ; beat++ {
			select {
			case <-ticker.C:
				emit(t, &Event{
					Kind:   KindHeartbeat,
					Scope:  ScopeEvent,
					Name:   "heartbeat",
					Detail: "#" + strconv.Itoa(beat),
				})
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
