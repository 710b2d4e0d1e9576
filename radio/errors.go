package radio

import (
	"errors"
	"fmt"
)

var (
	// ErrTuneTimeout is returned when the chip did not report a completed
	// tune or seek before the deadline.
	ErrTuneTimeout = errors.New("tune did not complete before the deadline")

	// ErrNotStarted is returned by control calls made before Start.
	ErrNotStarted = errors.New("radio driver not started")
)

// HardwareIOError reports a failed transfer on the i2c bus.
type HardwareIOError struct {
	Op  string
	Err error
}

func (e *HardwareIOError) Error() string {
	return fmt.Sprintf("si4703 %s: %v", e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *HardwareIOError) Unwrap() error {
	return e.Err
}
