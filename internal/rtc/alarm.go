package rtc

import "time"

// Field is one alarm comparator: when Enabled the register must equal Value.
type Field struct {
	Value   int
	Enabled bool
}

func (f Field) matches(v int) bool {
	return !f.Enabled || f.Value == v
}

// AlarmSpec is the alarm target for one channel. Enabled is the global
// channel enable; a channel with every comparator disabled matches every second.
type AlarmSpec struct {
	Second  Field
	Minute  Field
	Hour    Field
	Day     Field
	Weekday Field
	Month   Field
	Enabled bool
}

// DefaultAlarmSpec returns the periodic wake-up alarm: comparator values set
// to 10:00:10 Friday 6 September, every comparator disabled, channel enabled.
func DefaultAlarmSpec() AlarmSpec {
	return AlarmSpec{
		Second:  Field{Value: 10},
		Minute:  Field{Value: 0},
		Hour:    Field{Value: 10},
		Day:     Field{Value: 6},
		Weekday: Field{Value: 6},
		Month:   Field{Value: 9},
		Enabled: true,
	}
}

// Validate reports BadParameter for comparator values outside register range,
// whether or not the comparator is enabled.
func (s AlarmSpec) Validate() Outcome {
	switch {
	case s.Second.Value < 0 || s.Second.Value > 59,
		s.Minute.Value < 0 || s.Minute.Value > 59,
		s.Hour.Value < 0 || s.Hour.Value > 23,
		s.Day.Value < 1 || s.Day.Value > 31,
		s.Weekday.Value < 1 || s.Weekday.Value > 7,
		s.Month.Value < 1 || s.Month.Value > 12:
		return BadParameter
	}
	return Success
}

// Matches reports whether the alarm fires at dt.
func (s AlarmSpec) Matches(dt DateTime) bool {
	return s.Enabled &&
		s.Second.matches(dt.Sec) &&
		s.Minute.matches(dt.Min) &&
		s.Hour.matches(dt.Hour) &&
		s.Day.matches(dt.Day) &&
		s.Weekday.matches(dt.Weekday) &&
		s.Month.matches(dt.Month)
}

// Next returns the first whole second strictly after t at which the alarm
// matches. It reports false when the channel is disabled or nothing matches
// within the next five years (for example 31 February).
func (s AlarmSpec) Next(t time.Time) (time.Time, bool) {
	if !s.Enabled {
		return time.Time{}, false
	}

	loc := t.Location()
	t = t.Truncate(time.Second).Add(time.Second)
	limit := t.AddDate(5, 0, 0)

	for t.Before(limit) {
		dt := FromTime(t)
		y, m, d := t.Date()
		switch {
		case !s.Month.matches(dt.Month):
			t = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
		case !s.Day.matches(dt.Day) || !s.Weekday.matches(dt.Weekday):
			t = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		case !s.Hour.matches(dt.Hour):
			t = time.Date(y, m, d, t.Hour()+1, 0, 0, 0, loc)
		case !s.Minute.matches(dt.Min):
			t = time.Date(y, m, d, t.Hour(), t.Minute()+1, 0, 0, loc)
		case !s.Second.matches(dt.Sec):
			t = t.Add(time.Second)
		default:
			return t, true
		}
	}
	return time.Time{}, false
}
