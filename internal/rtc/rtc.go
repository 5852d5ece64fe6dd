// Package rtc drives the real-time clock: bring-up with a fixed start date,
// alarm scheduling with bounded retry and the alarm interrupt flag.
// The real implementation uses the Linux /dev/rtc interface.
// The fake implementation allows testing without hardware.
package rtc

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the status reported by an RTC register operation.
type Outcome int

const (
	Success Outcome = iota
	BadParameter
	Timeout
	Busy
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case BadParameter:
		return "BAD_PARAM"
	case Timeout:
		return "TIMEOUT"
	case Busy:
		return "BUSY"
	}
	return "UNKNOWN"
}

// Err returns nil for Success and an *OutcomeError otherwise.
func (o Outcome) Err() error {
	if o == Success {
		return nil
	}
	return &OutcomeError{Outcome: o}
}

// OutcomeError carries a failed Outcome through error returns.
type OutcomeError struct {
	Outcome Outcome
}

func (e *OutcomeError) Error() string {
	return "rtc: " + strings.ToLower(strings.ReplaceAll(e.Outcome.String(), "_", " "))
}

// Channel selects one of the RTC's alarm match units.
type Channel int

const (
	Alarm1 Channel = 1
	Alarm2 Channel = 2
)

// Valid reports whether the channel exists on the peripheral.
func (c Channel) Valid() bool {
	return c == Alarm1 || c == Alarm2
}

// DateTime is the calendar view of the RTC registers.
// Year counts from 2000 (0-99); Weekday runs 1 (Sunday) to 7 (Saturday).
type DateTime struct {
	Sec     int
	Min     int
	Hour    int
	Day     int
	Weekday int
	Month   int
	Year    int
}

// String renders the date/time as used in front of every diagnostic line,
// for example "10 : 0 : 5 24-9-6". Fields are not zero padded.
func (dt DateTime) String() string {
	return fmt.Sprintf("%d : %d : %d %d-%d-%d", dt.Hour, dt.Min, dt.Sec, dt.Year, dt.Month, dt.Day)
}

// Time converts the registers to a UTC time.
func (dt DateTime) Time() time.Time {
	return time.Date(2000+dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Min, dt.Sec, 0, time.UTC)
}

// FromTime converts a time to RTC registers, in the time's own location.
func FromTime(t time.Time) DateTime {
	return DateTime{
		Sec:     t.Second(),
		Min:     t.Minute(),
		Hour:    t.Hour(),
		Day:     t.Day(),
		Weekday: int(t.Weekday()) + 1,
		Month:   int(t.Month()),
		Year:    t.Year() - 2000,
	}
}

// Validate reports BadParameter if any register is out of range or the
// day does not exist in the month.
func (dt DateTime) Validate() Outcome {
	switch {
	case dt.Sec < 0 || dt.Sec > 59,
		dt.Min < 0 || dt.Min > 59,
		dt.Hour < 0 || dt.Hour > 23,
		dt.Month < 1 || dt.Month > 12,
		dt.Year < 0 || dt.Year > 99,
		dt.Weekday < 1 || dt.Weekday > 7,
		dt.Day < 1 || dt.Day > daysIn(dt.Month, dt.Year):
		return BadParameter
	}
	return Success
}

func daysIn(month, year int) int {
	return time.Date(2000+year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Peripheral is the RTC register interface.
type Peripheral interface {
	// SetDateTime initializes the clock. It may report Busy while a
	// previous register write is still completing.
	SetDateTime(dt DateTime) Outcome

	// SetAlarm commits spec to the alarm channel.
	SetAlarm(spec AlarmSpec, ch Channel) Outcome

	// DateTime reads the current registers.
	DateTime() (DateTime, error)

	// EnableAlarmInterrupt routes the channel's match interrupt to handler.
	// handler runs in interrupt context and must not block.
	EnableAlarmInterrupt(ch Channel, handler func()) error

	// DisableAlarmInterrupt masks the alarm interrupt.
	DisableAlarmInterrupt() error

	// Close releases the device.
	Close() error
}
