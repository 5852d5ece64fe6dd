package controller

import (
	"errors"
	"fmt"
	"log"
)

// Stage names the step that failed unrecoverably.
type Stage string

const (
	StageBoard     Stage = "board"
	StageRTCInit   Stage = "rtc-init"
	StageAlarmIRQ  Stage = "alarm-irq"
	StageHibernate Stage = "hibernate"
)

// FatalError is an unrecoverable failure. The system must halt.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is or wraps a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Halt performs the irrecoverable shutdown for err: it masks the alarm
// interrupt so nothing else reaches the flag, then reports the failure on
// the diagnostic stream and as a FATAL telemetry event. The caller exits.
func (c *Controller) Halt(err error) {
	if derr := c.opts.RTC.DisableAlarmInterrupt(); derr != nil {
		log.Printf("halt: %v", derr)
	}

	stage := "unknown"
	var fe *FatalError
	if errors.As(err, &fe) {
		stage = string(fe.Stage)
	}
	c.opts.Log.Line("fatal: " + err.Error())
	c.publishSystem("FATAL", stage)
}
