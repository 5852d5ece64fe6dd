package button

import "errors"

// FakeReader is a test double that returns scripted button levels.
type FakeReader struct {
	// Samples contains scripted pressed values. Each call to Pressed()
	// consumes the next sample; the last sample repeats once exhausted.
	Samples []bool

	index int

	// Reads counts calls to Pressed.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Presses returns a sample script for consecutive presses, each held for the
// given number of samples and followed by a single released sample.
func Presses(held ...int) []bool {
	var out []bool
	for _, n := range held {
		for i := 0; i < n; i++ {
			out = append(out, true)
		}
		out = append(out, false)
	}
	return out
}

// Pressed returns the next scripted sample.
func (f *FakeReader) Pressed() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
