package rtc

// Scheduler owns the alarm target and commits it to one channel.
// It is used from the main loop only.
type Scheduler struct {
	rtc     Peripheral
	spec    AlarmSpec
	channel Channel
	retry   Retrier
}

// NewScheduler creates a scheduler committing spec to ch on p.
func NewScheduler(p Peripheral, spec AlarmSpec, ch Channel, r Retrier) *Scheduler {
	return &Scheduler{rtc: p, spec: spec, channel: ch, retry: r}
}

// Spec returns a copy of the current alarm target.
func (s *Scheduler) Spec() AlarmSpec {
	return s.spec
}

// Channel returns the alarm channel the scheduler commits to.
func (s *Scheduler) Channel() Channel {
	return s.channel
}

// Update mutates the alarm target. The change takes effect on the next Commit.
func (s *Scheduler) Update(fn func(*AlarmSpec)) {
	fn(&s.spec)
}

// Commit writes the alarm target to the peripheral with bounded retry.
func (s *Scheduler) Commit() (Outcome, int) {
	return s.retry.Do(func() Outcome {
		return s.rtc.SetAlarm(s.spec, s.channel)
	})
}
