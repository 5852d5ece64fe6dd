// Package controller runs the power-mode state machine: it classifies button
// presses, commits the RTC alarm and enters deep sleep or hibernate.
package controller

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/rtc-wakeup/internal/diag"
	"github.com/sweeney/rtc-wakeup/internal/logic"
	"github.com/sweeney/rtc-wakeup/internal/mqtt"
	"github.com/sweeney/rtc-wakeup/internal/power"
	"github.com/sweeney/rtc-wakeup/internal/rtc"
	"github.com/sweeney/rtc-wakeup/internal/status"
)

// Options wires the controller to its collaborators.
type Options struct {
	RTC        rtc.Peripheral
	Power      power.Manager
	Classifier *logic.Classifier
	Scheduler  *rtc.Scheduler
	Retry      rtc.Retrier // used for RTC bring-up
	Log        *diag.Logger
	Sleep      func(time.Duration)

	Start  rtc.DateTime  // date/time written at bring-up
	Settle time.Duration // wait between alarm commit and low-power entry

	// Optional telemetry.
	Publisher mqtt.Publisher
	Tracker   *status.Tracker
	Now       func() time.Time
}

// Controller is the power-mode state machine. It is not safe for concurrent
// use; only the alarm flag is touched from interrupt context.
type Controller struct {
	opts   Options
	flag   rtc.AlarmFlag
	mode   logic.PowerMode
	counts logic.EventCounts
}

// New creates a controller in Active mode.
func New(opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{opts: opts, mode: logic.ModeActive}
}

// AlarmFlag returns the flag set by the alarm interrupt.
func (c *Controller) AlarmFlag() *rtc.AlarmFlag {
	return &c.flag
}

// Mode returns the current power mode.
func (c *Controller) Mode() logic.PowerMode {
	return c.mode
}

// Counts returns the transition counters.
func (c *Controller) Counts() logic.EventCounts {
	return c.counts
}

// Start reports the boot reason, brings up the RTC and enables the alarm
// interrupt. Any error is a *FatalError.
func (c *Controller) Start() error {
	l := c.opts.Log
	l.Plain("*************************************************************")
	l.Plain("RTC periodic wakeup alarm")
	l.Plain("*************************************************************")
	l.Plain("Short press the user button to enter DeepSleep mode.")
	l.Plain("Long press the user button to enter Hibernate mode.")

	reason := c.opts.Power.BootReason()
	if c.opts.Tracker != nil {
		c.opts.Tracker.SetBootReason(reason.String())
	}
	if reason == power.WakeFromHibernate {
		l.Line("Wakeup from the Hibernate mode")
	}

	out, attempts := rtc.BringUp(c.opts.RTC, c.opts.Start, c.opts.Retry)
	if out != rtc.Success {
		return &FatalError{Stage: StageRTCInit, Err: fmt.Errorf("after %d attempts: %w", attempts, out.Err())}
	}
	l.Line("Current date and time")

	if err := c.opts.RTC.EnableAlarmInterrupt(c.opts.Scheduler.Channel(), c.flag.Fire); err != nil {
		return &FatalError{Stage: StageAlarmIRQ, Err: err}
	}

	c.publishSystem("STARTUP", reason.String())
	return nil
}

// Run starts the controller and loops until ctx is cancelled or a fatal
// error occurs. Cancellation is observed between button interactions.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if _, err := c.Step(); err != nil {
			return err
		}
	}
}

// Step runs one loop pass: it blocks for one button classification and
// performs the matching power transition. It returns the classified event.
func (c *Controller) Step() (logic.SwitchEvent, error) {
	event, err := c.opts.Classifier.Classify()
	if err != nil {
		log.Printf("button read error: %v", err)
	}
	c.counts.Count(event)

	switch event {
	case logic.SwitchShortPress:
		c.deepSleep()
	case logic.SwitchLongPress:
		if err := c.hibernate(); err != nil {
			return event, err
		}
	}
	return event, nil
}

func (c *Controller) deepSleep() {
	c.setMode(logic.ModeAwaitingShortSleep)
	c.opts.Log.Line("Go to DeepSleep mode")

	out, attempts := c.commitAlarm()
	c.publish(logic.EventDeepSleep, out, attempts)
	c.opts.Sleep(c.opts.Settle)

	c.counts.DeepSleeps++
	if err := c.opts.Power.EnterDeepSleep(); err != nil {
		log.Printf("deep sleep: %v", err)
	}

	c.resumed("Wakeup from DeepSleep mode")
}

func (c *Controller) hibernate() error {
	c.setMode(logic.ModeAwaitingLongSleep)
	c.opts.Log.Line("Go to Hibernate mode")

	out, attempts := c.commitAlarm()
	c.publish(logic.EventHibernate, out, attempts)
	c.opts.Sleep(c.opts.Settle)

	c.counts.Hibernates++
	if err := c.opts.Power.EnterHibernate(power.WakeRTCAlarm); err != nil {
		c.opts.Log.Line("The CPU did not enter Hibernate mode")
		return &FatalError{Stage: StageHibernate, Err: err}
	}

	// Platforms that resume the saved image in place land here.
	c.resumed("Wakeup from the Hibernate mode")
	return nil
}

// commitAlarm writes the alarm. A failed commit is reported but the caller
// still enters the low-power mode.
func (c *Controller) commitAlarm() (rtc.Outcome, int) {
	c.opts.Log.Line(fmt.Sprintf("Setting RTC alarm on channel %d", c.opts.Scheduler.Channel()))
	out, attempts := c.opts.Scheduler.Commit()
	if c.opts.Tracker != nil {
		c.opts.Tracker.RecordCommit(out.String(), attempts)
	}
	if out != rtc.Success {
		c.opts.Log.Line(fmt.Sprintf("RTC alarm not set: %s after %d attempts", out, attempts))
		return out, attempts
	}
	if now, err := c.opts.RTC.DateTime(); err == nil {
		if next, ok := c.opts.Scheduler.Spec().Next(now.Time()); ok {
			c.opts.Log.Line("RTC alarm will be generated after " + seconds(next.Sub(now.Time())))
		}
	}
	return out, attempts
}

func seconds(d time.Duration) string {
	n := int64(d / time.Second)
	if n == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", n)
}

func (c *Controller) resumed(msg string) {
	fired := c.flag.Clear()
	if fired {
		c.counts.AlarmWakes++
	}
	c.setMode(logic.ModeActive)
	c.opts.Log.Line(msg)

	if c.opts.Publisher != nil {
		c.send(logic.Event{
			Timestamp:  c.opts.Now(),
			Type:       logic.EventWake,
			Mode:       logic.ModeActive,
			AlarmFired: fired,
		})
	}
}

func (c *Controller) setMode(mode logic.PowerMode) {
	c.mode = mode
	if c.opts.Tracker != nil {
		c.opts.Tracker.SetMode(mode)
		c.opts.Tracker.Update(c.counts)
	}
}

func (c *Controller) publish(t logic.EventType, out rtc.Outcome, attempts int) {
	if c.opts.Publisher == nil {
		return
	}
	c.send(logic.Event{
		Timestamp: c.opts.Now(),
		Type:      t,
		Mode:      c.mode,
		Outcome:   out.String(),
		Attempts:  attempts,
	})
}

func (c *Controller) send(e logic.Event) {
	if err := c.opts.Publisher.Publish(e); err != nil {
		// Don't stop the loop on publish failure
		log.Printf("publish error: %v", err)
	}
}

func (c *Controller) publishSystem(event, reason string) {
	if c.opts.Publisher == nil {
		return
	}

	se := mqtt.SystemEvent{
		Timestamp: c.opts.Now(),
		Event:     event,
		Reason:    reason,
		Retained:  true,
	}
	if t := c.opts.Tracker; t != nil {
		if cs, ok := c.opts.Publisher.(mqtt.ConnectionStatus); ok {
			t.SetMQTTConnected(cs.IsConnected())
		}
		t.Update(c.counts)
		se.RawPayload = status.FormatStatusEvent(t.Snapshot(), event, reason)
	}
	if err := c.opts.Publisher.PublishSystem(se); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	}
}

// Shutdown publishes an orderly stop, e.g. on SIGTERM.
func (c *Controller) Shutdown(reason string) {
	c.opts.Log.Line("Shutting down: " + reason)
	c.publishSystem("SHUTDOWN", reason)
}
