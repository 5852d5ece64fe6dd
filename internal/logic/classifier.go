package logic

import "time"

// Thresholds configures press classification. Short and Long are counts of
// Quantum-sized samples; a press must exceed a threshold to reach its bucket.
type Thresholds struct {
	Quantum time.Duration
	Settle  time.Duration
	Short   int
	Long    int
}

// DefaultThresholds returns 10 ms sampling, >100 ms short and >2 s long presses.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Quantum: 10 * time.Millisecond,
		Settle:  10 * time.Millisecond,
		Short:   10,
		Long:    200,
	}
}

// Bucket maps a press duration counted in quanta to a SwitchEvent.
// Boundary counts belong to the lower bucket.
func (th Thresholds) Bucket(count int) SwitchEvent {
	switch {
	case count > th.Long:
		return SwitchLongPress
	case count > th.Short:
		return SwitchShortPress
	}
	return SwitchNone
}

// Classifier measures how long the button is held by blocking polls.
type Classifier struct {
	pressed func() (bool, error)
	sleep   func(time.Duration)
	th      Thresholds
}

// NewClassifier creates a classifier sampling pressed every th.Quantum.
// sleep is the busy-wait used for both sampling and settling.
func NewClassifier(pressed func() (bool, error), sleep func(time.Duration), th Thresholds) *Classifier {
	return &Classifier{pressed: pressed, sleep: sleep, th: th}
}

// Classify blocks while the button reads pressed, counting one per quantum,
// then buckets the count. The settle delay is applied on every return path.
// A read error ends the poll; the press measured so far is still classified.
func (c *Classifier) Classify() (SwitchEvent, error) {
	count := 0
	var err error
	for {
		var down bool
		down, err = c.pressed()
		if err != nil || !down {
			break
		}
		c.sleep(c.th.Quantum)
		count++
	}

	event := c.th.Bucket(count)
	c.sleep(c.th.Settle)
	return event, err
}
