// Package power switches the system between low-power modes.
// The real implementation uses the Linux /sys/power interface.
// The fake implementation allows testing without hardware.
package power

import "errors"

// BootReason tells a cold boot apart from a wake out of hibernate.
type BootReason int

const (
	ColdBoot BootReason = iota
	WakeFromHibernate
)

func (r BootReason) String() string {
	if r == WakeFromHibernate {
		return "WAKE_FROM_HIBERNATE"
	}
	return "COLD_BOOT"
}

// WakeSource selects what may end a hibernate.
type WakeSource int

const (
	WakeRTCAlarm WakeSource = iota + 1
)

func (s WakeSource) String() string {
	if s == WakeRTCAlarm {
		return "RTC_ALARM"
	}
	return "UNKNOWN"
}

// ErrUnsupportedWakeSource is returned when hibernate is requested with a
// wake source the platform cannot arm.
var ErrUnsupportedWakeSource = errors.New("power: unsupported wake source")

// Manager enters low-power modes.
type Manager interface {
	// EnterDeepSleep suspends the CPU until an enabled interrupt arrives.
	// Peripheral and memory state are retained.
	EnterDeepSleep() error

	// EnterHibernate powers down with src armed as the only wake source.
	// A successful hibernate never returns on hardware that resets on
	// wake; platforms that resume in place return nil after waking.
	// An error means the system refused to hibernate.
	EnterHibernate(src WakeSource) error

	// BootReason reports why the system started.
	BootReason() BootReason
}
