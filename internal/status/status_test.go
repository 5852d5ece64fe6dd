package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/rtc-wakeup/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Broker: "tcp://localhost:1883", ButtonPin: 17, Attempts: 500}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Mode != logic.ModeActive {
		t.Errorf("Mode: got %q, want ACTIVE", snap.Mode)
	}
	if snap.Config.ButtonPin != 17 {
		t.Errorf("Config.ButtonPin: got %d, want 17", snap.Config.ButtonPin)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestTrackerSetters(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetBootReason("WAKE_FROM_HIBERNATE")
	tr.SetMode(logic.ModeAwaitingLongSleep)
	tr.Update(logic.EventCounts{ShortPresses: 2, Hibernates: 1})
	tr.RecordCommit("BUSY", 500)
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	if snap.BootReason != "WAKE_FROM_HIBERNATE" {
		t.Errorf("BootReason: got %q", snap.BootReason)
	}
	if snap.Mode != logic.ModeAwaitingLongSleep {
		t.Errorf("Mode: got %q", snap.Mode)
	}
	if snap.Counts.ShortPresses != 2 || snap.Counts.Hibernates != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if snap.LastOutcome != "BUSY" || snap.LastAttempts != 500 {
		t.Errorf("commit: got %s/%d", snap.LastOutcome, snap.LastAttempts)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(logic.EventCounts{DeepSleeps: 1})

	snap := tr.Snapshot()
	snap.Counts.DeepSleeps = 99

	if tr.Snapshot().Counts.DeepSleeps != 1 {
		t.Error("modifying a snapshot must not affect the tracker")
	}
}

func TestUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			tr.Update(logic.EventCounts{ShortPresses: n})
			tr.SetMode(logic.ModeAwaitingShortSleep)
		}(i)
		go func() {
			defer wg.Done()
			_ = tr.Snapshot()
		}()
	}
	wg.Wait()
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Mode:         logic.ModeActive,
		BootReason:   "COLD_BOOT",
		Counts:       logic.EventCounts{ShortPresses: 3, DeepSleeps: 3, AlarmWakes: 2},
		LastOutcome:  "SUCCESS",
		LastAttempts: 1,
		StartTime:    start,
		Now:          start.Add(65*time.Second + 400*time.Millisecond),
		Config:       Config{Broker: "tcp://b:1883", AlarmChannel: 2, Attempts: 500, RetryDelayMs: 5, SettleMs: 100},
	}

	data := FormatStatusEvent(snap, "STARTUP", "COLD_BOOT")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.Event != "STARTUP" || s.Reason != "COLD_BOOT" {
		t.Errorf("event/reason: got %q/%q", s.Event, s.Reason)
	}
	if s.UptimeSeconds != 65 {
		t.Errorf("UptimeSeconds: got %d, want 65", s.UptimeSeconds)
	}
	if s.Counts.AlarmWakes != 2 || s.Counts.DeepSleeps != 3 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.LastAlarm.Outcome != "SUCCESS" || s.LastAlarm.Attempts != 1 {
		t.Errorf("LastAlarm: got %+v", s.LastAlarm)
	}
	if s.Config.AlarmChannel != 2 || s.Config.SettleMs != 100 {
		t.Errorf("Config: got %+v", s.Config)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" {
		t.Errorf("StartTime: got %s", s.StartTime)
	}
}

func TestFormatStatusEventUnknownBootReason(t *testing.T) {
	data := FormatStatusEvent(Snapshot{}, "FATAL", "rtc-init")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.BootReason != "UNKNOWN" {
		t.Errorf("BootReason: got %q, want UNKNOWN", parsed.Status.BootReason)
	}
}
