//go:build linux

package rtc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the RTC character device.
const DefaultDevice = "/dev/rtc0"

// DevRTC drives a Linux RTC through its character device. The kernel keeps
// the RTC in UTC. Linux exposes a single wake alarm, so both channels map to it.
type DevRTC struct {
	f *os.File

	mu      sync.Mutex
	irqDone chan struct{}
}

// OpenDevRTC opens the RTC device at path.
func OpenDevRTC(path string) (*DevRTC, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open rtc: %w", err)
	}
	return &DevRTC{f: f}, nil
}

// control runs fn with the raw descriptor without switching it to blocking mode.
func (d *DevRTC) control(fn func(fd int) error) error {
	rc, err := d.f.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) { opErr = fn(int(fd)) }); err != nil {
		return err
	}
	return opErr
}

// SetDateTime writes the clock registers.
func (d *DevRTC) SetDateTime(dt DateTime) Outcome {
	if v := dt.Validate(); v != Success {
		return v
	}
	tm := toRTCTime(dt)
	return outcomeOf(d.control(func(fd int) error {
		return unix.IoctlSetRTCTime(fd, &tm)
	}))
}

// SetAlarm programs the wake alarm for the next time spec matches.
func (d *DevRTC) SetAlarm(spec AlarmSpec, ch Channel) Outcome {
	if !ch.Valid() {
		return BadParameter
	}
	if v := spec.Validate(); v != Success {
		return v
	}

	now, err := d.DateTime()
	if err != nil {
		return outcomeOf(err)
	}
	next, ok := spec.Next(now.Time())
	if !ok {
		return BadParameter
	}

	alarm := unix.RTCWkAlrm{Enabled: 1, Time: toRTCTime(FromTime(next))}
	return outcomeOf(d.control(func(fd int) error {
		return unix.IoctlSetRTCWkAlrm(fd, &alarm)
	}))
}

// DateTime reads the clock registers.
func (d *DevRTC) DateTime() (DateTime, error) {
	var tm *unix.RTCTime
	err := d.control(func(fd int) error {
		var err error
		tm, err = unix.IoctlGetRTCTime(fd)
		return err
	})
	if err != nil {
		return DateTime{}, fmt.Errorf("read rtc time: %w", err)
	}
	return fromRTCTime(tm), nil
}

// EnableAlarmInterrupt turns on the alarm interrupt and starts a reader that
// calls handler for every alarm event delivered by the device.
func (d *DevRTC) EnableAlarmInterrupt(ch Channel, handler func()) error {
	if !ch.Valid() {
		return fmt.Errorf("rtc: invalid alarm channel %d", ch)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.irqDone != nil {
		return errors.New("rtc: alarm interrupt already enabled")
	}

	err := d.control(func(fd int) error {
		return unix.IoctlSetInt(fd, unix.RTC_AIE_ON, 0)
	})
	if err != nil {
		return fmt.Errorf("enable alarm interrupt: %w", err)
	}

	done := make(chan struct{})
	d.irqDone = done
	go d.readInterrupts(handler, done)
	return nil
}

func (d *DevRTC) readInterrupts(handler func(), done chan struct{}) {
	defer close(done)
	buf := make([]byte, 8)
	for {
		n, err := d.f.Read(buf)
		if err != nil {
			if !errors.Is(err, os.ErrClosed) {
				log.Printf("rtc: interrupt read: %v", err)
			}
			return
		}

		var data uint64
		switch n {
		case 8:
			data = binary.NativeEndian.Uint64(buf)
		case 4:
			data = uint64(binary.NativeEndian.Uint32(buf))
		default:
			continue
		}
		if data&unix.RTC_AF != 0 {
			handler()
		}
	}
}

// DisableAlarmInterrupt masks the alarm interrupt. The reader keeps running
// until Close.
func (d *DevRTC) DisableAlarmInterrupt() error {
	err := d.control(func(fd int) error {
		return unix.IoctlSetInt(fd, unix.RTC_AIE_OFF, 0)
	})
	if err != nil {
		return fmt.Errorf("disable alarm interrupt: %w", err)
	}
	return nil
}

// Close masks the interrupt, closes the device and waits for the reader.
func (d *DevRTC) Close() error {
	var errs []error
	if err := d.DisableAlarmInterrupt(); err != nil {
		errs = append(errs, err)
	}
	if err := d.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close rtc: %w", err))
	}

	d.mu.Lock()
	done := d.irqDone
	d.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-time.After(time.Second):
			errs = append(errs, errors.New("rtc: interrupt reader did not stop"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func toRTCTime(dt DateTime) unix.RTCTime {
	return unix.RTCTime{
		Sec:  int32(dt.Sec),
		Min:  int32(dt.Min),
		Hour: int32(dt.Hour),
		Mday: int32(dt.Day),
		Mon:  int32(dt.Month - 1),
		Year: int32(dt.Year + 100),
		Wday: int32(dt.Weekday - 1),
	}
}

func fromRTCTime(tm *unix.RTCTime) DateTime {
	return DateTime{
		Sec:     int(tm.Sec),
		Min:     int(tm.Min),
		Hour:    int(tm.Hour),
		Day:     int(tm.Mday),
		Weekday: int(tm.Wday) + 1,
		Month:   int(tm.Mon) + 1,
		Year:    int(tm.Year) - 100,
	}
}

// outcomeOf maps the errno of a failed ioctl to an Outcome.
func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, unix.EBUSY):
		return Busy
	case errors.Is(err, unix.EINVAL), errors.Is(err, unix.ERANGE):
		return BadParameter
	case errors.Is(err, unix.ETIMEDOUT), errors.Is(err, unix.EAGAIN):
		return Timeout
	}
	return Unknown
}
