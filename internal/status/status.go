// Package status provides a thread-safe status tracker for the wake-up controller.
// The controller writes it; telemetry snapshots read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/rtc-wakeup/internal/logic"
)

// Config contains controller configuration for display.
type Config struct {
	Broker       string
	RTCDevice    string
	ButtonPin    int
	AlarmChannel int
	Attempts     int
	RetryDelayMs int64
	SettleMs     int64
}

// Snapshot is a point-in-time view of controller state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Mode          logic.PowerMode
	BootReason    string
	Counts        logic.EventCounts
	LastOutcome   string
	LastAttempts  int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable controller state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:      logic.ModeActive,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetBootReason records why the system started.
func (t *Tracker) SetBootReason(reason string) {
	t.mu.Lock()
	t.snap.BootReason = reason
	t.mu.Unlock()
}

// SetMode records the controller's power mode.
func (t *Tracker) SetMode(mode logic.PowerMode) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.mu.Unlock()
}

// Update replaces the event counts.
func (t *Tracker) Update(counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordCommit stores the result of the latest alarm commit.
func (t *Tracker) RecordCommit(outcome string, attempts int) {
	t.mu.Lock()
	t.snap.LastOutcome = outcome
	t.snap.LastAttempts = attempts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
