//go:build !linux

package rtc

import "errors"

// DefaultDevice is the RTC character device.
const DefaultDevice = "/dev/rtc0"

var errUnsupported = errors.New("rtc: not supported on this platform (requires Linux)")

// DevRTC is not available on non-Linux platforms.
type DevRTC struct{}

// OpenDevRTC returns an error on non-Linux platforms.
func OpenDevRTC(path string) (*DevRTC, error) {
	return nil, errUnsupported
}

// SetDateTime is not implemented on non-Linux platforms.
func (d *DevRTC) SetDateTime(dt DateTime) Outcome {
	return Unknown
}

// SetAlarm is not implemented on non-Linux platforms.
func (d *DevRTC) SetAlarm(spec AlarmSpec, ch Channel) Outcome {
	return Unknown
}

// DateTime is not implemented on non-Linux platforms.
func (d *DevRTC) DateTime() (DateTime, error) {
	return DateTime{}, errUnsupported
}

// EnableAlarmInterrupt is not implemented on non-Linux platforms.
func (d *DevRTC) EnableAlarmInterrupt(ch Channel, handler func()) error {
	return errUnsupported
}

// DisableAlarmInterrupt is not implemented on non-Linux platforms.
func (d *DevRTC) DisableAlarmInterrupt() error {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (d *DevRTC) Close() error {
	return nil
}
