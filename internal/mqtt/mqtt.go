// Package mqtt publishes power-mode telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/rtc-wakeup/internal/logic"
)

// Topic is the MQTT topic for power transition events.
const Topic = "device/rtc-wakeup/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "device/rtc-wakeup/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a power transition event to the broker.
	// Returns error if publishing fails (should not stop the controller).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, fatal, offline).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "FATAL", "SHUTDOWN", "OFFLINE"
	Reason     string // boot reason, fatal stage or signal
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Power PowerPayload `json:"power"`
}

// PowerPayload contains the power transition details.
type PowerPayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	Mode       string `json:"mode"`
	Outcome    string `json:"alarm_outcome,omitempty"`
	Attempts   int    `json:"alarm_attempts,omitempty"`
	AlarmFired bool   `json:"alarm_fired,omitempty"`
}

// FormatPayload creates the JSON payload for a power event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Power: PowerPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			Mode:       string(event.Mode),
			Outcome:    event.Outcome,
			Attempts:   event.Attempts,
			AlarmFired: event.AlarmFired,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (OFFLINE will, SHUTDOWN) without a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
