// Package diag writes the diagnostic line stream. Every line is prefixed
// with the RTC date/time, e.g. "10 : 0 : 5 24-9-6: Go to DeepSleep mode".
package diag

import (
	"io"
	"log"

	"github.com/sweeney/rtc-wakeup/internal/rtc"
)

// Clock supplies the timestamp for each line.
type Clock interface {
	DateTime() (rtc.DateTime, error)
}

// Logger is the diagnostic sink. It must not be used from interrupt context.
type Logger struct {
	out   *log.Logger
	clock Clock
}

// New creates a Logger writing to w. A nil clock stamps the zero date/time.
func New(w io.Writer, clock Clock) *Logger {
	return &Logger{out: log.New(w, "", 0), clock: clock}
}

// Line writes one timestamped line. If the clock cannot be read the zero
// date/time is used, matching what unset RTC registers read back.
func (l *Logger) Line(text string) {
	var dt rtc.DateTime
	if l.clock != nil {
		if now, err := l.clock.DateTime(); err == nil {
			dt = now
		}
	}
	l.out.Printf("%s: %s", dt, text)
}

// Plain writes a line without timestamp, used for the startup banner.
func (l *Logger) Plain(text string) {
	l.out.Print(text)
}
