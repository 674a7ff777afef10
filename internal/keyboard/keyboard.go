// Package keyboard turns a "q" line on a terminal into a user stop request.
package keyboard

import (
	"bufio"
	"io"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// StopKey is the line that requests a stop (case-insensitive).
const StopKey = "q"

// Watcher scans an input stream for the stop key. Requested never blocks.
type Watcher struct {
	requested atomic.Bool
	done      chan struct{}
	logger    *zap.Logger
}

// Watch starts scanning r in a background goroutine. The goroutine ends when
// r returns EOF or an error; a blocked terminal read cannot be interrupted,
// so callers should not wait on Done for stdin.
func Watch(r io.Reader, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{done: make(chan struct{}), logger: logger}
	go w.scan(r)
	return w
}

// Requested reports whether the stop key has been seen.
func (w *Watcher) Requested() bool {
	return w.requested.Load()
}

// Request sets the stop flag directly (used by renderers whose window was
// closed).
func (w *Watcher) Request() {
	w.requested.Store(true)
}

// Done is closed when scanning ends.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) scan(r io.Reader) {
	defer close(w.done)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if strings.EqualFold(strings.TrimSpace(sc.Text()), StopKey) {
			w.logger.Info("keyboard: stop key pressed")
			w.requested.Store(true)
			return
		}
	}
	if err := sc.Err(); err != nil {
		w.logger.Debug("keyboard: input closed", zap.Error(err))
	}
}
