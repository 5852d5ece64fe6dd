package controller

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/rtc-wakeup/internal/button"
	"github.com/sweeney/rtc-wakeup/internal/diag"
	"github.com/sweeney/rtc-wakeup/internal/logic"
	"github.com/sweeney/rtc-wakeup/internal/mqtt"
	"github.com/sweeney/rtc-wakeup/internal/power"
	"github.com/sweeney/rtc-wakeup/internal/rtc"
	"github.com/sweeney/rtc-wakeup/internal/status"
)

var startTime = rtc.DateTime{Sec: 0, Min: 0, Hour: 10, Day: 6, Weekday: 6, Month: 9, Year: 24}

// tracingRTC records alarm commits in the shared trace.
type tracingRTC struct {
	*rtc.FakeRTC
	trace *[]string
}

func (r tracingRTC) SetAlarm(spec rtc.AlarmSpec, ch rtc.Channel) rtc.Outcome {
	out := r.FakeRTC.SetAlarm(spec, ch)
	*r.trace = append(*r.trace, "commit "+out.String())
	return out
}

// tracingPower records mode entries in the shared trace.
type tracingPower struct {
	*power.FakeManager
	trace *[]string
}

func (p tracingPower) EnterDeepSleep() error {
	*p.trace = append(*p.trace, "deep-sleep")
	return p.FakeManager.EnterDeepSleep()
}

func (p tracingPower) EnterHibernate(src power.WakeSource) error {
	*p.trace = append(*p.trace, "hibernate")
	return p.FakeManager.EnterHibernate(src)
}

type rig struct {
	rtc     *rtc.FakeRTC
	pm      *power.FakeManager
	btn     *button.FakeReader
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	out     bytes.Buffer
	trace   []string
	ctrl    *Controller
}

func newRig(samples []bool, reason power.BootReason) *rig {
	r := &rig{
		rtc:     rtc.NewFakeRTC(),
		pm:      power.NewFakeManager(reason),
		btn:     button.NewFakeReader(samples),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Now(), status.Config{}),
	}
	sleep := func(d time.Duration) {
		r.trace = append(r.trace, "sleep "+d.String())
	}

	periph := tracingRTC{FakeRTC: r.rtc, trace: &r.trace}
	retry := rtc.NewRetrier(sleep)
	r.ctrl = New(Options{
		RTC:        periph,
		Power:      tracingPower{FakeManager: r.pm, trace: &r.trace},
		Classifier: logic.NewClassifier(r.btn.Pressed, sleep, logic.DefaultThresholds()),
		Scheduler:  rtc.NewScheduler(periph, rtc.DefaultAlarmSpec(), rtc.Alarm2, retry),
		Retry:      retry,
		Log:        diag.New(&r.out, r.rtc),
		Sleep:      sleep,
		Start:      startTime,
		Settle:     100 * time.Millisecond,
		Publisher:  r.pub,
		Tracker:    r.tracker,
	})
	return r
}

func (r *rig) index(entry string) int {
	for i, e := range r.trace {
		if e == entry {
			return i
		}
	}
	return -1
}

func (r *rig) lastCommit() int {
	last := -1
	for i, e := range r.trace {
		if strings.HasPrefix(e, "commit ") {
			last = i
		}
	}
	return last
}

// assertCommitSettleEnter checks the commit finished and the settle delay
// elapsed before the low-power entry.
func (r *rig) assertCommitSettleEnter(t *testing.T, enter string) {
	t.Helper()
	commit := r.lastCommit()
	settle := r.index("sleep 100ms")
	entry := r.index(enter)
	if commit < 0 || settle < 0 || entry < 0 {
		t.Fatalf("missing step in trace: commit=%d settle=%d %s=%d", commit, settle, enter, entry)
	}
	if !(commit < settle && settle < entry) {
		t.Errorf("wrong order: commit=%d settle=%d %s=%d", commit, settle, enter, entry)
	}
}

func TestStartColdBoot(t *testing.T) {
	r := newRig(button.Presses(0), power.ColdBoot)

	if err := r.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if r.rtc.Now != startTime {
		t.Errorf("RTC not initialized: %+v", r.rtc.Now)
	}
	if r.rtc.IRQEnables != 1 || r.rtc.IRQChannel != rtc.Alarm2 {
		t.Errorf("alarm irq: enables=%d channel=%d, want 1/2", r.rtc.IRQEnables, r.rtc.IRQChannel)
	}
	out := r.out.String()
	if !strings.Contains(out, "10 : 0 : 0 24-9-6: Current date and time\n") {
		t.Errorf("missing date line in:\n%s", out)
	}
	if strings.Contains(out, "Wakeup from the Hibernate mode") {
		t.Errorf("cold boot must not report hibernate wake:\n%s", out)
	}
	if len(r.pub.SystemEvents) != 1 || r.pub.SystemEvents[0].Event != "STARTUP" {
		t.Fatalf("expected STARTUP event, got %+v", r.pub.SystemEvents)
	}
	if r.pub.SystemEvents[0].Reason != "COLD_BOOT" {
		t.Errorf("STARTUP reason: got %q", r.pub.SystemEvents[0].Reason)
	}
	if r.tracker.Snapshot().BootReason != "COLD_BOOT" {
		t.Errorf("tracker BootReason: got %q", r.tracker.Snapshot().BootReason)
	}
}

func TestStartWakeFromHibernate(t *testing.T) {
	r := newRig(button.Presses(0), power.WakeFromHibernate)

	if err := r.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.Contains(r.out.String(), "Wakeup from the Hibernate mode") {
		t.Errorf("missing hibernate wake notice in:\n%s", r.out.String())
	}
	if r.pub.SystemEvents[0].Reason != "WAKE_FROM_HIBERNATE" {
		t.Errorf("STARTUP reason: got %q", r.pub.SystemEvents[0].Reason)
	}
}

func TestStartRTCInitAlwaysBusyIsFatal(t *testing.T) {
	r := newRig(button.Presses(0), power.ColdBoot)
	r.rtc.InitOutcomes = []rtc.Outcome{rtc.Busy}

	err := r.ctrl.Start()

	var fe *FatalError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FatalError, got %v", err)
	}
	if fe.Stage != StageRTCInit {
		t.Errorf("Stage: got %s, want %s", fe.Stage, StageRTCInit)
	}
	var oe *rtc.OutcomeError
	if !errors.As(err, &oe) || oe.Outcome != rtc.Busy {
		t.Errorf("expected wrapped BUSY outcome, got %v", err)
	}
	if r.rtc.InitCalls != 500 {
		t.Errorf("InitCalls: got %d, want 500", r.rtc.InitCalls)
	}
	if r.rtc.IRQEnables != 0 {
		t.Error("interrupt must not be enabled after failed bring-up")
	}
}

// failingIRQ refuses to enable the alarm interrupt.
type failingIRQ struct {
	*rtc.FakeRTC
}

func (failingIRQ) EnableAlarmInterrupt(rtc.Channel, func()) error {
	return errors.New("no irq line")
}

func TestStartAlarmIRQFailureIsFatal(t *testing.T) {
	r := newRig(button.Presses(0), power.ColdBoot)
	r.ctrl.opts.RTC = failingIRQ{r.rtc}

	err := r.ctrl.Start()
	var fe *FatalError
	if !errors.As(err, &fe) || fe.Stage != StageAlarmIRQ {
		t.Fatalf("expected alarm-irq fatal, got %v", err)
	}
}

func TestShortPressEntersDeepSleep(t *testing.T) {
	r := newRig(button.Presses(50), power.ColdBoot)
	r.ctrl.Start()

	event, err := r.ctrl.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if event != logic.SwitchShortPress {
		t.Fatalf("event: got %s, want SHORT_PRESS", event)
	}

	r.assertCommitSettleEnter(t, "deep-sleep")
	if r.pm.DeepSleeps != 1 || len(r.pm.Hibernates) != 0 {
		t.Errorf("power: deep=%d hib=%d, want 1/0", r.pm.DeepSleeps, len(r.pm.Hibernates))
	}
	if !r.rtc.AlarmSet || r.rtc.AlarmChannel != rtc.Alarm2 {
		t.Error("alarm not committed to channel 2")
	}
	if r.ctrl.Mode() != logic.ModeActive {
		t.Errorf("mode after wake: got %s", r.ctrl.Mode())
	}

	out := r.out.String()
	for _, want := range []string{
		"10 : 0 : 0 24-9-6: Go to DeepSleep mode",
		"RTC alarm will be generated after 1 second\n",
		"Wakeup from DeepSleep mode",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	types := r.pub.EventTypes()
	if len(types) != 2 || types[0] != logic.EventDeepSleep || types[1] != logic.EventWake {
		t.Errorf("published: got %v, want [DEEP_SLEEP WAKE]", types)
	}
	if r.pub.Events[0].Mode != logic.ModeAwaitingShortSleep || r.pub.Events[0].Outcome != "SUCCESS" {
		t.Errorf("DEEP_SLEEP event: got %+v", r.pub.Events[0])
	}
}

func TestLongPressEntersHibernate(t *testing.T) {
	r := newRig(button.Presses(250), power.ColdBoot)
	r.ctrl.Start()

	event, err := r.ctrl.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if event != logic.SwitchLongPress {
		t.Fatalf("event: got %s, want LONG_PRESS", event)
	}

	r.assertCommitSettleEnter(t, "hibernate")
	if len(r.pm.Hibernates) != 1 || r.pm.Hibernates[0] != power.WakeRTCAlarm {
		t.Errorf("Hibernates: got %v, want [RTC_ALARM]", r.pm.Hibernates)
	}
	if r.pm.DeepSleeps != 0 {
		t.Error("long press must not deep sleep")
	}
	if r.ctrl.Counts().Hibernates != 1 || r.ctrl.Counts().LongPresses != 1 {
		t.Errorf("counts: got %+v", r.ctrl.Counts())
	}
}

func TestFailedCommitStillEntersLowPower(t *testing.T) {
	tests := []struct {
		name    string
		held    int
		enter   string
		outcome rtc.Outcome
	}{
		{"deep sleep busy", 50, "deep-sleep", rtc.Busy},
		{"deep sleep timeout", 50, "deep-sleep", rtc.Timeout},
		{"hibernate busy", 250, "hibernate", rtc.Busy},
		{"hibernate bad param", 250, "hibernate", rtc.BadParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(button.Presses(tt.held), power.ColdBoot)
			r.rtc.AlarmOutcomes = []rtc.Outcome{tt.outcome}
			r.ctrl.Start()

			if _, err := r.ctrl.Step(); err != nil {
				t.Fatalf("Step: %v", err)
			}

			if r.rtc.AlarmCalls != 500 {
				t.Errorf("AlarmCalls: got %d, want 500", r.rtc.AlarmCalls)
			}
			r.assertCommitSettleEnter(t, tt.enter)

			want := "RTC alarm not set: " + tt.outcome.String() + " after 500 attempts"
			if !strings.Contains(r.out.String(), want) {
				t.Errorf("missing %q in:\n%s", want, r.out.String())
			}
			if got := r.tracker.Snapshot().LastOutcome; got != tt.outcome.String() {
				t.Errorf("tracker LastOutcome: got %q", got)
			}
		})
	}
}

func TestHibernateRefusedIsFatal(t *testing.T) {
	r := newRig(button.Presses(250), power.ColdBoot)
	r.pm.HibernateError = errors.New("device busy")
	r.ctrl.Start()

	event, err := r.ctrl.Step()
	if event != logic.SwitchLongPress {
		t.Errorf("event: got %s", event)
	}
	var fe *FatalError
	if !errors.As(err, &fe) || fe.Stage != StageHibernate {
		t.Fatalf("expected hibernate fatal, got %v", err)
	}
	if !strings.Contains(r.out.String(), "The CPU did not enter Hibernate mode") {
		t.Errorf("missing refusal line in:\n%s", r.out.String())
	}
}

func TestNoEventDoesNothing(t *testing.T) {
	r := newRig(button.Presses(10), power.ColdBoot)
	r.ctrl.Start()

	event, err := r.ctrl.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if event != logic.SwitchNone {
		t.Errorf("event: got %s, want NONE", event)
	}
	if r.rtc.AlarmCalls != 0 || r.pm.DeepSleeps != 0 || len(r.pm.Hibernates) != 0 {
		t.Error("NONE must not commit or sleep")
	}
	if len(r.pub.Events) != 0 {
		t.Errorf("published: got %v", r.pub.EventTypes())
	}
}

func TestDeepSleepWokenByAlarm(t *testing.T) {
	r := newRig(button.Presses(50), power.ColdBoot)
	flagDuringSleep := false
	r.pm.OnDeepSleep = func() {
		r.rtc.Tick()
		flagDuringSleep = r.ctrl.AlarmFlag().Fired()
	}
	r.ctrl.Start()

	r.ctrl.Step()

	if !flagDuringSleep {
		t.Fatal("alarm interrupt should set the flag while asleep")
	}
	if r.ctrl.AlarmFlag().Fired() {
		t.Error("flag should be consumed after resume")
	}
	if r.ctrl.Counts().AlarmWakes != 1 {
		t.Errorf("AlarmWakes: got %d, want 1", r.ctrl.Counts().AlarmWakes)
	}
	wake := r.pub.Events[len(r.pub.Events)-1]
	if wake.Type != logic.EventWake || !wake.AlarmFired {
		t.Errorf("WAKE event: got %+v", wake)
	}
}

func TestDeepSleepErrorIsNotFatal(t *testing.T) {
	r := newRig(button.Presses(50, 0), power.ColdBoot)
	r.pm.DeepSleepError = errors.New("suspend refused")
	r.ctrl.Start()

	if _, err := r.ctrl.Step(); err != nil {
		t.Fatalf("deep sleep failure must not be fatal: %v", err)
	}
	if _, err := r.ctrl.Step(); err != nil {
		t.Fatalf("second step: %v", err)
	}
}

func TestPublishErrorDoesNotStopLoop(t *testing.T) {
	r := newRig(button.Presses(50), power.ColdBoot)
	r.pub.PublishError = errors.New("broker down")
	r.ctrl.Start()

	if _, err := r.ctrl.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if r.pm.DeepSleeps != 1 {
		t.Error("publish failure must not prevent deep sleep")
	}
}

func TestInterruptEnabledOnce(t *testing.T) {
	r := newRig(button.Presses(50, 250, 3), power.ColdBoot)
	r.ctrl.Start()
	for i := 0; i < 4; i++ {
		if _, err := r.ctrl.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if r.rtc.IRQEnables != 1 {
		t.Errorf("IRQEnables: got %d, want 1", r.rtc.IRQEnables)
	}
	if r.rtc.AlarmCalls != 2 {
		t.Errorf("AlarmCalls: got %d, want 2", r.rtc.AlarmCalls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRig(button.Presses(0), power.ColdBoot)
	ctx, cancel := context.WithCancel(context.Background())

	settles := 0
	r.ctrl.opts.Classifier = logic.NewClassifier(r.btn.Pressed, func(time.Duration) {
		settles++
		if settles == 5 {
			cancel()
		}
	}, logic.DefaultThresholds())

	if err := r.ctrl.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if settles != 5 {
		t.Errorf("loop passes: got %d, want 5", settles)
	}
}

func TestRunFatalAtStartup(t *testing.T) {
	r := newRig(button.Presses(50), power.ColdBoot)
	r.rtc.InitOutcomes = []rtc.Outcome{rtc.Timeout}

	err := r.ctrl.Run(context.Background())
	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if r.btn.Reads != 0 {
		t.Errorf("button must not be read after failed startup, got %d reads", r.btn.Reads)
	}
}

func TestHalt(t *testing.T) {
	r := newRig(button.Presses(0), power.ColdBoot)
	r.ctrl.Start()

	r.ctrl.Halt(&FatalError{Stage: StageHibernate, Err: errors.New("refused")})

	if r.rtc.Fire() {
		t.Error("alarm interrupt must be masked after Halt")
	}
	if !strings.Contains(r.out.String(), "fatal: fatal hibernate: refused") {
		t.Errorf("missing fatal line in:\n%s", r.out.String())
	}
	last := r.pub.SystemEvents[len(r.pub.SystemEvents)-1]
	if last.Event != "FATAL" || last.Reason != "hibernate" {
		t.Errorf("last system event: got %s/%s, want FATAL/hibernate", last.Event, last.Reason)
	}
}

func TestShutdown(t *testing.T) {
	r := newRig(button.Presses(0), power.ColdBoot)
	r.ctrl.Start()

	r.ctrl.Shutdown("SIGTERM")

	last := r.pub.SystemEvents[len(r.pub.SystemEvents)-1]
	if last.Event != "SHUTDOWN" || last.Reason != "SIGTERM" {
		t.Errorf("last system event: got %s/%s", last.Event, last.Reason)
	}
}

func TestFatalErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &FatalError{Stage: StageBoard, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("FatalError should unwrap to its cause")
	}
	if err.Error() != "fatal board: inner" {
		t.Errorf("Error: got %q", err.Error())
	}
	if IsFatal(inner) {
		t.Error("plain error is not fatal")
	}
}

func TestSeconds(t *testing.T) {
	if got := seconds(time.Second); got != "1 second" {
		t.Errorf("seconds(1s): got %q", got)
	}
	if got := seconds(90 * time.Second); got != "90 seconds" {
		t.Errorf("seconds(90s): got %q", got)
	}
}

func TestControllerWithoutTelemetry(t *testing.T) {
	r := newRig(button.Presses(50, 250), power.ColdBoot)
	r.ctrl.opts.Publisher = nil
	r.ctrl.opts.Tracker = nil

	if err := r.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := r.ctrl.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	r.ctrl.Halt(errors.New("x"))
}
