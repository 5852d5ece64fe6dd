package rtc

import "time"

// Default retry bounds for RTC register operations.
const (
	DefaultAttempts   = 500
	DefaultRetryDelay = 5 * time.Millisecond
)

// Retrier repeats an RTC operation until it succeeds or the attempts run out.
// The peripheral reports Busy while it finishes a previous register write;
// a fixed delay between attempts gives it time without polling its status.
type Retrier struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration)
}

// NewRetrier returns a Retrier with the default bounds.
func NewRetrier(sleep func(time.Duration)) Retrier {
	return Retrier{Attempts: DefaultAttempts, Delay: DefaultRetryDelay, Sleep: sleep}
}

// Do runs op until it returns Success or Attempts have been made, sleeping
// Delay between attempts. It returns the last outcome and the number of
// attempts made. At least one attempt is always made.
func (r Retrier) Do(op func() Outcome) (Outcome, int) {
	n := 0
	for {
		out := op()
		n++
		if out == Success || n >= r.Attempts {
			return out, n
		}
		r.Sleep(r.Delay)
	}
}

// BringUp initializes the RTC with the start date/time, retrying while the
// peripheral is busy. Anything but Success is unrecoverable for the caller.
func BringUp(p Peripheral, start DateTime, r Retrier) (Outcome, int) {
	return r.Do(func() Outcome {
		return p.SetDateTime(start)
	})
}
