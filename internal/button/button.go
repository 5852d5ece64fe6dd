// Package button reads the user button with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package button

// Reader reads the user button state.
type Reader interface {
	// Pressed returns true while the button is held down.
	// The line is active-low: the raw level is inverted by the reader.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults for the user button (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)
