// manager/worker.go
package manager

import (
	"errors"
)

var ErrSessionClosed = errors.New("session command queue closed")

// worker is the per-session exclusive execution context: one goroutine
// draining one command queue, so no two commands for the same session are
// ever in flight concurrently. Sessions get independent workers; there is
// no cross-session lock.
type worker struct {
	queue chan func()
	quit  chan struct{}
}

func newWorker() *worker {
	w := &worker{
		queue: make(chan func(), 256),
		quit:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *worker) loop() {
	for {
		select {
		case fn := <-w.queue:
			fn()
		case <-w.quit:
			return
		}
	}
}

func (w *worker) stop() {
	close(w.quit)
}

// do runs fn on the session worker and waits for its result. This is the
// synchronous command path: callers get validation errors back directly.
func (m *GameManager) do(sessionID string, fn func() error) error {
	m.mutex.RLock()
	w, exists := m.workers[sessionID]
	m.mutex.RUnlock()
	if !exists {
		return ErrSessionClosed
	}

	errCh := make(chan error, 1)
	select {
	case w.queue <- func() { errCh <- fn() }:
	case <-w.quit:
		return ErrSessionClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-w.quit:
		return ErrSessionClosed
	}
}

// enqueue runs fn on the session worker without waiting. Timer callbacks
// and other fire-and-forget paths come through here; a closed session
// swallows them.
func (m *GameManager) enqueue(sessionID string, fn func()) {
	m.mutex.RLock()
	w, exists := m.workers[sessionID]
	m.mutex.RUnlock()
	if !exists {
		return
	}
	select {
	case w.queue <- fn:
	case <-w.quit:
	}
}
