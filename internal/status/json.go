package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Mode          string     `json:"mode"`
	BootReason    string     `json:"boot_reason"`
	LastAlarm     AlarmJSON  `json:"last_alarm"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTTConnected bool       `json:"mqtt_connected"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// AlarmJSON reports the most recent alarm commit.
type AlarmJSON struct {
	Outcome  string `json:"outcome,omitempty"`
	Attempts int    `json:"attempts"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ShortPresses int `json:"short_presses"`
	LongPresses  int `json:"long_presses"`
	DeepSleeps   int `json:"deep_sleeps"`
	Hibernates   int `json:"hibernates"`
	AlarmWakes   int `json:"alarm_wakes"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	Broker       string `json:"broker"`
	RTCDevice    string `json:"rtc_device"`
	ButtonPin    int    `json:"button_pin"`
	AlarmChannel int    `json:"alarm_channel"`
	Attempts     int    `json:"attempts"`
	RetryDelayMs int64  `json:"retry_delay_ms"`
	SettleMs     int64  `json:"settle_ms"`
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	bootReason := snap.BootReason
	if bootReason == "" {
		bootReason = "UNKNOWN"
	}

	inner := StatusInner{
		Event:         event,
		Reason:        reason,
		Mode:          string(snap.Mode),
		BootReason:    bootReason,
		LastAlarm:     AlarmJSON{Outcome: snap.LastOutcome, Attempts: snap.LastAttempts},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTTConnected: snap.MQTTConnected,
		Counts: CountsJSON{
			ShortPresses: snap.Counts.ShortPresses,
			LongPresses:  snap.Counts.LongPresses,
			DeepSleeps:   snap.Counts.DeepSleeps,
			Hibernates:   snap.Counts.Hibernates,
			AlarmWakes:   snap.Counts.AlarmWakes,
		},
		Config: ConfigJSON{
			Broker:       snap.Config.Broker,
			RTCDevice:    snap.Config.RTCDevice,
			ButtonPin:    snap.Config.ButtonPin,
			AlarmChannel: snap.Config.AlarmChannel,
			Attempts:     snap.Config.Attempts,
			RetryDelayMs: snap.Config.RetryDelayMs,
			SettleMs:     snap.Config.SettleMs,
		},
	}

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
