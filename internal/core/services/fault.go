package services

import "sync"

// workerFault keeps the first panic raised by a worker goroutine so it can
// be raised again on the goroutine that waits for the workers.
type workerFault struct {
	once  sync.Once
	value any
}

// capture must be deferred directly by the worker.
func (f *workerFault) capture() {
	if r := recover(); r != nil {
		f.once.Do(func() { f.value = r })
	}
}

// rethrow panics with the captured value, if any. Call it only after the
// workers have finished.
func (f *workerFault) rethrow() {
	if f.value != nil {
		panic(f.value)
	}
}
