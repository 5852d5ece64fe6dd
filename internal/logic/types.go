// Package logic contains the pure decision logic of the wake-up controller.
// This package has NO external dependencies (no GPIO, RTC, MQTT or OS).
// Pin sampling and delays are injected so the logic runs without hardware.
package logic

import "time"

// SwitchEvent is the classification of one button interaction.
type SwitchEvent int

const (
	SwitchNone SwitchEvent = iota
	SwitchShortPress
	SwitchLongPress
)

func (e SwitchEvent) String() string {
	switch e {
	case SwitchNone:
		return "NONE"
	case SwitchShortPress:
		return "SHORT_PRESS"
	case SwitchLongPress:
		return "LONG_PRESS"
	}
	return "UNKNOWN"
}

// PowerMode is the transient state of the power-mode controller.
type PowerMode string

const (
	ModeActive             PowerMode = "ACTIVE"
	ModeAwaitingShortSleep PowerMode = "AWAITING_SHORT_SLEEP"
	ModeAwaitingLongSleep  PowerMode = "AWAITING_LONG_SLEEP"
)

// EventType identifies a power transition to be published.
type EventType string

const (
	EventDeepSleep EventType = "DEEP_SLEEP"
	EventHibernate EventType = "HIBERNATE"
	EventWake      EventType = "WAKE"
)

// Event describes a power transition requested or observed by the controller.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Mode       PowerMode
	Outcome    string // alarm commit outcome, empty for WAKE
	Attempts   int    // alarm commit attempts, 0 for WAKE
	AlarmFired bool   // WAKE only
}

// EventCounts tracks how often each transition happened since startup.
type EventCounts struct {
	ShortPresses int
	LongPresses  int
	DeepSleeps   int
	Hibernates   int
	AlarmWakes   int
}

// Count records a classified switch event.
func (c *EventCounts) Count(e SwitchEvent) {
	switch e {
	case SwitchShortPress:
		c.ShortPresses++
	case SwitchLongPress:
		c.LongPresses++
	}
}
