package rtc

import "sync/atomic"

// AlarmFlag records that the alarm interrupt fired. It is the only state
// shared between the interrupt handler and the main loop.
type AlarmFlag struct {
	fired atomic.Bool
}

// Fire is the alarm interrupt handler. It sets the flag and returns.
func (f *AlarmFlag) Fire() {
	f.fired.Store(true)
}

// Fired reports whether the alarm has fired since the last Clear.
func (f *AlarmFlag) Fired() bool {
	return f.fired.Load()
}

// Clear resets the flag and reports whether it was set.
func (f *AlarmFlag) Clear() bool {
	return f.fired.Swap(false)
}
