package monitoring

import (
	"errors"
	"testing"
	"time"
)

type fakeMonitor struct {
	errs   []error
	panics []any
	tags   map[string]string
}

func (f *fakeMonitor) CaptureException(err error, tags map[string]string) {
	f.errs = append(f.errs, err)
	f.tags = tags
}

func (f *fakeMonitor) CapturePanic(v any, tags map[string]string) {
	f.panics = append(f.panics, v)
	f.tags = tags
}

func (f *fakeMonitor) Flush(time.Duration) {}

func TestCaptureAndRecover(t *testing.T) {
	f := &fakeMonitor{}
	Init(f)
	defer Init(nil)

	CaptureException(nil, nil)
	CaptureException(errors.New("x"), map[string]string{"run": "1"})
	if len(f.errs) != 1 || f.tags["run"] != "1" {
		t.Fatalf("unexpected captures %+v", f)
	}

	run := func() (err error) {
		defer func() {
			if perr := RecoverPanic(recover(), map[string]string{"agent": "3"}); perr != nil {
				err = perr
			}
		}()
		panic("boom")
	}
	err := run()
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "boom" {
		t.Fatalf("expected PanicError got %v", err)
	}
	if len(f.panics) != 1 || f.tags["agent"] != "3" {
		t.Fatalf("panic not reported: %+v", f)
	}
	if RecoverPanic(nil, nil) != nil {
		t.Fatalf("nil value must not produce an error")
	}
	Flush(time.Millisecond)
}
