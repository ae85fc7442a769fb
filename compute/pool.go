// Package compute manages the worker width used by numeric code.
//
// Width is held in an explicit Pool object rather than process-global state so
// that callers (the classifier's fit path, the loadings extractor) can
// configure parallelism once and pass it down. A scoped Narrow lets a
// collaborator temporarily reduce the width and guarantees restoration.
package compute

import (
	"runtime"
	"sync"
)

// Pool bounds how many goroutines numeric helpers fan out to.
type Pool struct {
	mu    sync.Mutex
	width int
}

// NewPool returns a pool with the given width. Width <= 0 means one worker
// per CPU.
func NewPool(width int) *Pool {
	if width <= 0 {
		width = runtime.NumCPU()
	}
	return &Pool{width: width}
}

// Default is the pool used when a caller does not supply one.
var Default = NewPool(0)

// Width returns the current worker width.
func (p *Pool) Width() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

// SetWidth changes the worker width. Width <= 0 resets to one per CPU.
func (p *Pool) SetWidth(width int) {
	if width <= 0 {
		width = runtime.NumCPU()
	}
	p.mu.Lock()
	p.width = width
	p.mu.Unlock()
}

// Narrow reduces the width for the duration of a computation and returns a
// restore function. Callers must invoke restore (typically via defer) so the
// previous width survives failures in the narrowed computation.
func (p *Pool) Narrow(width int) (restore func()) {
	p.mu.Lock()
	prev := p.width
	if width > 0 && width < prev {
		p.width = width
	}
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.width = prev
		p.mu.Unlock()
	}
}

// Do splits [0, n) into at most Width contiguous chunks and runs fn on each
// chunk in its own goroutine, blocking until all complete. With a single
// worker (or tiny n) it runs inline.
func (p *Pool) Do(n int, fn func(lo, hi int)) {
	workers := p.Width()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		if n > 0 {
			fn(0, n)
		}
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
