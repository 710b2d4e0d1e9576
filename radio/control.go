package radio

// SetVolume sets the output volume, clamped to 0...15. 0 mutes the
// output stage.
func (s *Si4703Driver) SetVolume(volume int) error {
	if volume < volumeMin {
		volume = volumeMin
	} else if volume > volumeMax {
		volume = volumeMax
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.update(func(r *registers) {
		r.set(fieldVolume, uint16(volume))
	})
}

// Volume returns the current output volume.
func (s *Si4703Driver) Volume() (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.readRegisters(); err != nil {
		return 0, err
	}
	return int(s.regs.get(fieldVolume)), nil
}

// SetMute mutes or unmutes the audio. The chip bit is a mute disable.
func (s *Si4703Driver) SetMute(mute bool) error {
	return s.setFlag(fieldMuteDisable, !mute)
}

// SetSoftMute turns the soft mute on weak signals on or off.
func (s *Si4703Driver) SetSoftMute(mute bool) error {
	return s.setFlag(fieldSoftMuteDisable, !mute)
}

// SetMono forces mono reception.
func (s *Si4703Driver) SetMono(mono bool) error {
	return s.setFlag(fieldMono, mono)
}

// SetRDSVerbose switches the chip between standard and verbose RDS mode.
func (s *Si4703Driver) SetRDSVerbose(verbose bool) error {
	return s.setFlag(fieldRDSMode, verbose)
}

// RSSI returns the received signal strength in dBµV.
func (s *Si4703Driver) RSSI() (uint8, error) {
	v, err := s.status(fieldRSSI)
	return uint8(v), err
}

// Stereo reports whether the current station is received in stereo.
func (s *Si4703Driver) Stereo() (bool, error) {
	v, err := s.status(fieldStereo)
	return v != 0, err
}

// RDSSynchronized reports whether the RDS decoder of the chip is synchronized.
func (s *Si4703Driver) RDSSynchronized() (bool, error) {
	v, err := s.status(fieldRDSSynced)
	return v != 0, err
}

func (s *Si4703Driver) setFlag(f field, on bool) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.update(func(r *registers) {
		r.setFlag(f, on)
	})
}

// status reads a read-only field.
func (s *Si4703Driver) status(f field) (uint16, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.readRegisters(); err != nil {
		return 0, err
	}
	return s.regs.get(f), nil
}
