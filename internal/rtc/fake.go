package rtc

import (
	"errors"
	"sync"
	"time"
)

// FakeRTC is a test double with scripted register outcomes.
// The interrupt handler is invoked synchronously by Tick and Fire.
type FakeRTC struct {
	// InitOutcomes scripts SetDateTime results, one per call.
	// The last entry repeats once exhausted; empty means Success.
	InitOutcomes []Outcome

	// AlarmOutcomes scripts SetAlarm results the same way.
	AlarmOutcomes []Outcome

	// InitCalls and AlarmCalls count register writes.
	InitCalls  int
	AlarmCalls int

	// Now is the current register content.
	Now DateTime

	// Alarm and AlarmChannel hold the last committed alarm.
	Alarm        AlarmSpec
	AlarmChannel Channel
	AlarmSet     bool

	// ReadError, if set, will be returned by DateTime()
	ReadError error

	// IRQEnables counts EnableAlarmInterrupt calls.
	IRQEnables int
	IRQChannel Channel

	// Closed tracks if Close was called
	Closed bool

	mu      sync.Mutex
	handler func()
}

// NewFakeRTC creates a FakeRTC whose writes succeed.
func NewFakeRTC() *FakeRTC {
	return &FakeRTC{}
}

func scripted(script []Outcome, call int) Outcome {
	if len(script) == 0 {
		return Success
	}
	if call > len(script) {
		return script[len(script)-1]
	}
	return script[call-1]
}

// SetDateTime returns the next scripted outcome and latches dt on Success.
func (f *FakeRTC) SetDateTime(dt DateTime) Outcome {
	f.InitCalls++
	out := scripted(f.InitOutcomes, f.InitCalls)
	if out != Success {
		return out
	}
	if v := dt.Validate(); v != Success {
		return v
	}
	f.Now = dt
	return Success
}

// SetAlarm returns the next scripted outcome and latches spec on Success.
func (f *FakeRTC) SetAlarm(spec AlarmSpec, ch Channel) Outcome {
	f.AlarmCalls++
	out := scripted(f.AlarmOutcomes, f.AlarmCalls)
	if out != Success {
		return out
	}
	if !ch.Valid() {
		return BadParameter
	}
	if v := spec.Validate(); v != Success {
		return v
	}
	f.Alarm = spec
	f.AlarmChannel = ch
	f.AlarmSet = true
	return Success
}

// DateTime returns Now.
func (f *FakeRTC) DateTime() (DateTime, error) {
	if f.ReadError != nil {
		return DateTime{}, f.ReadError
	}
	return f.Now, nil
}

// EnableAlarmInterrupt stores handler for Tick and Fire.
func (f *FakeRTC) EnableAlarmInterrupt(ch Channel, handler func()) error {
	if !ch.Valid() {
		return errors.New("rtc: invalid alarm channel")
	}
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	f.IRQEnables++
	f.IRQChannel = ch
	return nil
}

// DisableAlarmInterrupt drops the handler.
func (f *FakeRTC) DisableAlarmInterrupt() error {
	f.mu.Lock()
	f.handler = nil
	f.mu.Unlock()
	return nil
}

// Tick advances the clock by one second and raises the alarm interrupt if
// the committed alarm matches the new time. It reports whether it fired.
func (f *FakeRTC) Tick() bool {
	f.Now = FromTime(f.Now.Time().Add(time.Second))
	if !f.AlarmSet || !f.Alarm.Matches(f.Now) {
		return false
	}
	return f.Fire()
}

// Fire raises the alarm interrupt regardless of the alarm registers.
// It reports false if the interrupt is not enabled.
func (f *FakeRTC) Fire() bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h()
	return true
}

// Close marks the device as closed and masks the interrupt.
func (f *FakeRTC) Close() error {
	f.DisableAlarmInterrupt()
	f.Closed = true
	return nil
}
