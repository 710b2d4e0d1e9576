// Package config loads the fmtuner configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"fmtuner/radio"
)

// Config represents the fmtuner configuration
type Config struct {
	Radio struct {
		// I2C bus and address, 0 uses the adaptor default
		Bus     int `yaml:"bus"`
		Address int `yaml:"address"`

		Area     string `yaml:"area"`
		ResetPin string `yaml:"reset_pin"`
		SDIOPin  string `yaml:"sdio_pin"`

		// Frequency in 10 kHz units, e.g. 9730 for 97.30 MHz
		Frequency int `yaml:"frequency"`
		Volume    int `yaml:"volume"`

		// TuneTimeout in milliseconds
		TuneTimeout int `yaml:"tune_timeout"`
	} `yaml:"radio"`

	RDS struct {
		// InterruptPin receives the RDS ready pulses on GPIO2. Without
		// it the registers are polled every PollInterval milliseconds.
		InterruptPin string `yaml:"interrupt_pin"`
		PollInterval int    `yaml:"poll_interval"`
	} `yaml:"rds"`

	Display struct {
		Enabled        bool `yaml:"enabled"`
		Bus            int  `yaml:"bus"`
		Address        int  `yaml:"address"`
		ScrollInterval int  `yaml:"scroll_interval"`
	} `yaml:"display"`

	Logging struct {
		Debug      bool   `yaml:"debug"`
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
	} `yaml:"logging"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document and fills in the defaults
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if config.Radio.Address == 0 {
		config.Radio.Address = radio.Address
	}
	if config.Radio.Area == "" {
		config.Radio.Area = string(radio.AreaEU)
	}
	config.Radio.Area = strings.ToUpper(config.Radio.Area)
	if config.Radio.ResetPin == "" {
		config.Radio.ResetPin = radio.DefaultResetPin
	}
	if config.Radio.SDIOPin == "" {
		config.Radio.SDIOPin = radio.DefaultSDIOPin
	}
	if config.Radio.TuneTimeout == 0 {
		config.Radio.TuneTimeout = int(radio.DefaultTuneTimeout / time.Millisecond)
	}
	if config.RDS.PollInterval == 0 {
		config.RDS.PollInterval = 40
	}
	if config.Display.Address == 0 {
		config.Display.Address = 0x27
	}
	if config.Display.ScrollInterval == 0 {
		config.Display.ScrollInterval = 400
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = 10
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = 3
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = 28
	}

	return &config, config.Validate()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch radio.Area(c.Radio.Area) {
	case radio.AreaEU, radio.AreaUS:
	default:
		return fmt.Errorf("radio area %q is not supported", c.Radio.Area)
	}
	if c.Radio.Frequency != 0 && (c.Radio.Frequency < radio.FrequencyMin || c.Radio.Frequency > radio.FrequencyMax) {
		return fmt.Errorf("radio frequency %d is outside %d ... %d", c.Radio.Frequency, radio.FrequencyMin, radio.FrequencyMax)
	}
	if c.Radio.Volume < 0 || c.Radio.Volume > 15 {
		return fmt.Errorf("radio volume %d is outside 0 ... 15", c.Radio.Volume)
	}
	if c.Radio.Address < 0 || c.Radio.Address > 0x7F {
		return fmt.Errorf("radio address 0x%X is not a 7 bit address", c.Radio.Address)
	}
	if c.Display.Address < 0 || c.Display.Address > 0x7F {
		return fmt.Errorf("display address 0x%X is not a 7 bit address", c.Display.Address)
	}
	if c.Radio.TuneTimeout < 0 || c.RDS.PollInterval < 0 || c.Display.ScrollInterval < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}

// RadioConfig returns the driver configuration for the receiver.
func (c *Config) RadioConfig(log, debugLog func(format string, v ...interface{})) radio.Si4703Config {
	return radio.Si4703Config{
		Area:         radio.Area(c.Radio.Area),
		ResetPin:     c.Radio.ResetPin,
		SDIOPin:      c.Radio.SDIOPin,
		InterruptPin: c.RDS.InterruptPin,
		Frequency:    uint16(c.Radio.Frequency),
		Volume:       c.Radio.Volume,
		TuneTimeout:  time.Duration(c.Radio.TuneTimeout) * time.Millisecond,
		DebugMode:    c.Logging.Debug,
		DebugLog:     debugLog,
		Log:          log,
	}
}

// PollInterval is how often the RDS registers are polled.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.RDS.PollInterval) * time.Millisecond
}

// ScrollInterval is how often the second display line moves.
func (c *Config) ScrollInterval() time.Duration {
	return time.Duration(c.Display.ScrollInterval) * time.Millisecond
}
