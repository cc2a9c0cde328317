// Package monitoring forwards errors and panics to the configured error
// tracker. Without Init every call is a no-op.
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CapturePanic reports a recovered panic value.
	CapturePanic(v any, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor restores the
// no-op default.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// RecoverPanic reports v when it is a recovered panic value and returns it
// as an error; it returns nil when v is nil. Call it with the result of
// recover() inside a deferred function:
//
//	defer func() {
//	    if perr := monitoring.RecoverPanic(recover(), tags); perr != nil {
//	        err = perr
//	    }
//	}()
func RecoverPanic(v any, tags map[string]string) error {
	if v == nil {
		return nil
	}
	get().CapturePanic(v, tags)
	return &PanicError{Value: v}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}
