package radio

import (
	"context"
	"errors"

	"github.com/hashicorp/go-multierror"
)

// SetFrequency tunes to freq, given in 10 kHz units (9730 is 97.30 MHz).
// Values outside the band are clamped. It returns once the chip reports
// the tune as complete, or after the configured tune timeout.
func (s *Si4703Driver) SetFrequency(freq uint16) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.tuneTimeout)
	defer cancel()
	return s.SetFrequencyContext(ctx, freq)
}

// SetFrequencyContext is SetFrequency bounded by ctx instead of the
// configured tune timeout.
func (s *Si4703Driver) SetFrequencyContext(ctx context.Context, freq uint16) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tune(ctx, freq)
}

// Frequency returns the frequency the receiver is tuned to, in 10 kHz units.
func (s *Si4703Driver) Frequency() (uint16, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.readRegisters(); err != nil {
		return 0, err
	}
	return s.currentFrequency(), nil
}

// StepFrequency moves one channel up or down, wrapping around at the
// band limits.
func (s *Si4703Driver) StepFrequency(up bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.tuneTimeout)
	defer cancel()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.readRegisters(); err != nil {
		return err
	}

	freq := s.currentFrequency()
	if up {
		freq += s.step
		if freq > s.upperBound {
			freq = s.lowerBound
		}
	} else {
		freq -= s.step
		if freq < s.lowerBound {
			freq = s.upperBound
		}
	}
	return s.tune(ctx, freq)
}

// SeekUp searches upwards for the next station.
func (s *Si4703Driver) SeekUp() error {
	return s.seekWithTimeout(true)
}

// SeekDown searches downwards for the next station.
func (s *Si4703Driver) SeekDown() error {
	return s.seekWithTimeout(false)
}

// SeekContext searches for the next station in the given direction,
// bounded by ctx.
func (s *Si4703Driver) SeekContext(ctx context.Context, up bool) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.seek(ctx, up)
}

// SeekFailed reports whether the last seek hit the band limit
// without finding a station.
func (s *Si4703Driver) SeekFailed() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.seekFailed
}

func (s *Si4703Driver) seekWithTimeout(up bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.tuneTimeout)
	defer cancel()
	return s.SeekContext(ctx, up)
}

func (s *Si4703Driver) currentFrequency() uint16 {
	return s.regs.get(fieldReadChannel)*s.step + s.lowerBound
}

// channel converts a frequency to a channel number, clamping to the band.
func (s *Si4703Driver) channel(freq uint16) uint16 {
	if freq < s.lowerBound {
		if s.debugMode {
			s.debugLog("frequency %d below band, clamping to %d\n", freq, s.lowerBound)
		}
		freq = s.lowerBound
	} else if freq > s.upperBound {
		if s.debugMode {
			s.debugLog("frequency %d above band, clamping to %d\n", freq, s.upperBound)
		}
		freq = s.upperBound
	}
	return (freq - s.lowerBound) / s.step
}

// tune follows AN230 section 3.7.1.
func (s *Si4703Driver) tune(ctx context.Context, freq uint16) error {
	ch := s.channel(freq)

	err := s.update(func(r *registers) {
		r.set(fieldChannel, ch)
		r.setFlag(fieldTune, true)
	})
	if err != nil {
		return err
	}

	return s.waitForCompletion(ctx)
}

func (s *Si4703Driver) seek(ctx context.Context, up bool) error {
	err := s.update(func(r *registers) {
		// wrap at the band limits
		r.setFlag(fieldSeekMode, false)
		r.setFlag(fieldSeekUp, up)
		r.setFlag(fieldSeek, true)
	})
	if err != nil {
		return err
	}

	return s.waitForCompletion(ctx)
}

// waitForCompletion polls until STC is set, then clears SEEK and TUNE.
// The chip keeps STC set until both bits are cleared.
func (s *Si4703Driver) waitForCompletion(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return s.abortTune(err)
		}
		if err := s.readRegisters(); err != nil {
			return err
		}
		if s.regs.flag(fieldSeekComplete) {
			break
		}
		s.sleep(pollInterval)
	}

	err := s.update(func(r *registers) {
		s.seekFailed = r.flag(fieldSeekFail)
		r.setFlag(fieldSeek, false)
		r.setFlag(fieldTune, false)
	})
	if err != nil {
		return err
	}

	if s.debugMode {
		s.debugLog("tuned to %.2f MHz, RSSI %d\n", float32(s.currentFrequency())/100, s.regs.get(fieldRSSI))
	}
	return nil
}

// abortTune still ends the operation so the chip does not stay in seek.
func (s *Si4703Driver) abortTune(cause error) error {
	result := cause
	if errors.Is(cause, context.DeadlineExceeded) {
		result = ErrTuneTimeout
	}

	err := s.update(func(r *registers) {
		r.setFlag(fieldSeek, false)
		r.setFlag(fieldTune, false)
	})
	if err != nil {
		return multierror.Append(result, err)
	}
	return result
}
