// interrupt.go holds the SIGINT flag polled between states. In-flight
// assistant children receive the signal themselves via the process
// group; the engine only records that it should stop at the next state
// boundary.
package engine

import (
	"os"
	"os/signal"
	"sync/atomic"
)

// interruptFlag is a one-shot shutdown request set by the signal handler
// and read by the engine loop.
type interruptFlag struct {
	set atomic.Bool
	ch  chan os.Signal
}

// Install registers the SIGINT handler. Safe to call once per run.
func (f *interruptFlag) Install() {
	f.ch = make(chan os.Signal, 1)
	signal.Notify(f.ch, os.Interrupt)
	go func(ch chan os.Signal) {
		if _, ok := <-ch; ok {
			f.set.Store(true)
		}
	}(f.ch)
}

// Release unregisters the handler. A second SIGINT after release kills
// the process the default way.
func (f *interruptFlag) Release() {
	if f.ch != nil {
		signal.Stop(f.ch)
		close(f.ch)
		f.ch = nil
	}
}

// Set reports whether an interrupt was requested.
func (f *interruptFlag) Set() bool {
	return f.set.Load()
}

// Trigger sets the flag directly. Used by tests in place of a signal.
func (f *interruptFlag) Trigger() {
	f.set.Store(true)
}

// RequestInterrupt sets the engine's shutdown flag as if SIGINT had been
// delivered.
func (e *Engine) RequestInterrupt() {
	e.interrupt.Trigger()
}
