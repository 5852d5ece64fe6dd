package power

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Default sysfs locations.
const (
	DefaultStatePath  = "/sys/power/state"
	DefaultWakeupPath = "/sys/class/rtc/rtc0/device/power/wakeup"
	DefaultMarkerPath = "/var/lib/rtc-wakeup/hibernated"
)

// SysfsPaths locates the kernel power interface and the boot-reason marker.
type SysfsPaths struct {
	State  string // power state control, accepts "mem" and "disk"
	Wakeup string // wakeup control of the RTC device
	Marker string // retained across hibernate to report the boot reason
}

// DefaultSysfsPaths returns the standard Linux locations.
func DefaultSysfsPaths() SysfsPaths {
	return SysfsPaths{
		State:  DefaultStatePath,
		Wakeup: DefaultWakeupPath,
		Marker: DefaultMarkerPath,
	}
}

// Sysfs enters suspend-to-RAM (deep sleep) and suspend-to-disk (hibernate)
// through the kernel's power interface. A marker file written before
// hibernate stands in for a retained reset-reason register.
type Sysfs struct {
	paths  SysfsPaths
	reason BootReason
}

// NewSysfs snapshots the boot reason and consumes the marker.
func NewSysfs(paths SysfsPaths) (*Sysfs, error) {
	s := &Sysfs{paths: paths, reason: ColdBoot}

	_, err := os.Stat(paths.Marker)
	switch {
	case err == nil:
		s.reason = WakeFromHibernate
		if err := os.Remove(paths.Marker); err != nil {
			return nil, fmt.Errorf("clear hibernate marker: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read hibernate marker: %w", err)
	}
	return s, nil
}

// EnterDeepSleep suspends to RAM. The write returns after resume.
func (s *Sysfs) EnterDeepSleep() error {
	if err := os.WriteFile(s.paths.State, []byte("mem"), 0o644); err != nil {
		return fmt.Errorf("enter deep sleep: %w", err)
	}
	return nil
}

// EnterHibernate arms the RTC as wake source and suspends to disk.
// If the kernel resumes the saved image the call returns nil; if the system
// instead boots fresh, the marker tells the next process it woke from hibernate.
func (s *Sysfs) EnterHibernate(src WakeSource) error {
	if src != WakeRTCAlarm {
		return fmt.Errorf("%w: %s", ErrUnsupportedWakeSource, src)
	}

	if err := os.WriteFile(s.paths.Wakeup, []byte("enabled"), 0o644); err != nil {
		return fmt.Errorf("arm rtc wakeup: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.paths.Marker), 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}
	if err := os.WriteFile(s.paths.Marker, nil, 0o644); err != nil {
		return fmt.Errorf("write hibernate marker: %w", err)
	}

	if err := os.WriteFile(s.paths.State, []byte("disk"), 0o644); err != nil {
		os.Remove(s.paths.Marker)
		return fmt.Errorf("enter hibernate: %w", err)
	}

	// Resumed in place: this process continues, the next boot is a cold one.
	os.Remove(s.paths.Marker)
	return nil
}

// BootReason reports the reason captured by NewSysfs.
func (s *Sysfs) BootReason() BootReason {
	return s.reason
}
