package radio

import (
	"fmt"
	"math"
)

// addCommands exposes the receiver controls through the gobot API.
// Numbers arrive as float64, the way they are decoded from JSON.
func (s *Si4703Driver) addCommands() {
	s.AddCommand("SetVolume", func(params map[string]interface{}) interface{} {
		volume, err := floatParam(params, "volume", volumeMin, volumeMax)
		if err != nil {
			return err
		}
		return s.SetVolume(int(volume))
	})
	s.AddCommand("Volume", func(params map[string]interface{}) interface{} {
		volume, err := s.Volume()
		if err != nil {
			return err
		}
		return volume
	})
	s.AddCommand("SetFrequency", func(params map[string]interface{}) interface{} {
		freq, err := floatParam(params, "frequency", float64(s.lowerBound), float64(s.upperBound))
		if err != nil {
			return err
		}
		return s.SetFrequency(uint16(freq))
	})
	s.AddCommand("Frequency", func(params map[string]interface{}) interface{} {
		freq, err := s.Frequency()
		if err != nil {
			return err
		}
		return freq
	})
	s.AddCommand("SeekUp", func(params map[string]interface{}) interface{} {
		return s.SeekUp()
	})
	s.AddCommand("SeekDown", func(params map[string]interface{}) interface{} {
		return s.SeekDown()
	})
	s.AddCommand("SetMute", func(params map[string]interface{}) interface{} {
		mute, err := boolParam(params, "mute")
		if err != nil {
			return err
		}
		return s.SetMute(mute)
	})
	s.AddCommand("SetMono", func(params map[string]interface{}) interface{} {
		mono, err := boolParam(params, "mono")
		if err != nil {
			return err
		}
		return s.SetMono(mono)
	})
	s.AddCommand("RSSI", func(params map[string]interface{}) interface{} {
		rssi, err := s.RSSI()
		if err != nil {
			return err
		}
		return rssi
	})
}

// floatParam returns a numeric parameter clamped to min...max, so the
// integer conversion that follows is always defined.
func floatParam(params map[string]interface{}, name string, min, max float64) (float64, error) {
	v, ok := params[name].(float64)
	if !ok {
		return 0, fmt.Errorf("parameter %q missing or not a number", name)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("parameter %q is not a number", name)
	}
	if v < min {
		v = min
	} else if v > max {
		v = max
	}
	return v, nil
}

func boolParam(params map[string]interface{}, name string) (bool, error) {
	v, ok := params[name].(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q missing or not a bool", name)
	}
	return v, nil
}
