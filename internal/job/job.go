// Package job runs background work as handles that later work can depend on.
package job

// Handle is a scheduled unit of work. A nil *Handle counts as already done.
type Handle struct {
	done chan struct{}
}

// Go starts fn on its own goroutine once every dependency has completed.
// Nil dependencies are ignored.
func Go(fn func(), deps ...*Handle) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		for _, d := range deps {
			d.Wait()
		}
		fn()
	}()
	return h
}

// Wait blocks until the work behind h has finished.
func (h *Handle) Wait() {
	if h == nil {
		return
	}
	<-h.done
}
