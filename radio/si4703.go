// Package radio implements a driver for the Si4703 FM broadcast radio
// receiver, as found on the SparkFun Si4703 breakout, together with a
// decoder for the RDS data it receives.
//
// The main implementation is under the Si4703Driver and it requires
// some additional configuration via Si4703Config structure.
//
// The chip is driven in 2-wire mode: a reset sequence selects the bus
// mode, after which the whole register map is read and written as one
// block. The driver keeps a shadow copy of the registers and always
// reads before it writes so that reserved bits survive.
//
// To read about the specifications of the receiver, read the following documents:
// https://www.silabs.com/documents/public/data-sheets/Si4702-03-C19.pdf
// https://www.silabs.com/documents/public/application-notes/AN230.pdf
package radio

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/gpio"
	"gobot.io/x/gobot/drivers/i2c"
)

const (
	low  = 0x0
	high = 0x1
)

// Misc constants.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
const (
	// Address is the 2-wire address of the receiver.
	Address = 0x10

	// DefaultResetPin is header pin 29 (BCM 5) on the Raspberry Pi.
	DefaultResetPin = "29"

	// DefaultSDIOPin is header pin 3 (BCM 2, SDA1) on the Raspberry Pi.
	DefaultSDIOPin = "3"

	// DefaultTuneTimeout bounds a tune or seek. A seek across the
	// whole band takes a few seconds, so this is generous.
	DefaultTuneTimeout = 30 * time.Second

	// pollInterval is the pause between two status reads while tuning.
	pollInterval = 10 * time.Millisecond

	// volumeStartup is the volume set during power on.
	volumeStartup = 1
)

// Settle times from AN230.
const (
	resetSettle      = 100 * time.Millisecond
	oscillatorSettle = 500 * time.Millisecond
	powerUpSettle    = 110 * time.Millisecond
)

// Events published by the driver.
const (
	// StationEvent carries the confirmed station name as a string.
	StationEvent = "station"

	// RadiotextEvent carries a radiotext message as a string.
	RadiotextEvent = "radiotext"

	// ClockEvent carries a Clock value.
	ClockEvent = "clock"

	// ErrorEvent carries errors from the RDS interrupt path.
	ErrorEvent = "error"
)

// Area selects the regional band settings.
type Area string

// Supported areas.
const (
	// AreaEU uses 100 kHz spacing and 50 µs de-emphasis.
	AreaEU Area = "EU"

	// AreaUS uses 200 kHz spacing and 75 µs de-emphasis.
	AreaUS Area = "US"
)

// Band limits, in 10 kHz units.
const (
	FrequencyMin = 8750
	FrequencyMax = 10800
)

// step is the channel spacing in 10 kHz units.
func (a Area) step() uint16 {
	if a == AreaUS {
		return 20
	}
	return 10
}

// Clock is the local time carried by an RDS 4A group.
type Clock struct {
	Hours   int
	Minutes int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hours, c.Minutes)
}

// Si4703Driver holds the implementation to talk to the
// SparkFun Si4703 FM Radio Receiver breakout.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type Si4703Driver struct {
	name         string
	i2cConnector i2c.Connector
	i2c.Config
	gobot.Eventer
	gobot.Commander

	conn i2c.Connection

	// mtx serialises every access to regs and decoder, including the
	// work triggered by the RDS interrupt.
	mtx  sync.Mutex
	regs registers

	resetPin     string
	sdioPin      string
	interruptPin string

	area       Area
	lowerBound uint16
	upperBound uint16
	step       uint16

	frequency   uint16
	volume      int
	tuneTimeout time.Duration
	seekFailed  bool

	debugMode bool
	debugLog  func(format string, v ...interface{})
	log       func(format string, v ...interface{})

	sleep func(time.Duration)

	decoder   *RDSDecoder
	onStation func(name string)
	onText    func(text string)
	onClock   func(hours, minutes int)
	pending   []func()

	interrupt       *gpio.ButtonDriver
	interruptActive bool
	rdsReady        chan struct{}
	rdsDone         chan struct{}
	rdsWG           sync.WaitGroup
}

// Name of our device.
func (s *Si4703Driver) Name() string {
	return s.name
}

// SetName set the name of our device.
func (s *Si4703Driver) SetName(name string) {
	s.name = name
}

// Start connects to the receiver, powers it on and applies the
// configured frequency and volume. When an interrupt pin is configured
// RDS data is then decoded as it arrives.
func (s *Si4703Driver) Start() error {
	bus := s.GetBusOrDefault(s.i2cConnector.GetDefaultBus())
	addr := s.GetAddressOrDefault(Address)

	conn, err := s.i2cConnector.GetConnection(addr, bus)
	if err != nil {
		return err
	}

	s.mtx.Lock()
	s.conn = conn
	s.mtx.Unlock()

	if err = s.Poweron(); err != nil {
		return err
	}

	if s.frequency != 0 {
		if s.debugMode {
			s.debugLog("Tuning into %.2f\n", float32(s.frequency)/100)
		}
		if err = s.SetFrequency(s.frequency); err != nil {
			return err
		}
	}

	if s.volume != 0 && s.volume != volumeStartup {
		if err = s.SetVolume(s.volume); err != nil {
			return err
		}
	}

	if s.interruptPin != "" {
		return s.EnableRDSInterrupt()
	}
	return nil
}

// Halt stops the RDS interrupt handling and powers the receiver down.
func (s *Si4703Driver) Halt() error {
	var result error
	if err := s.stopRDSInterrupt(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.Shutdown(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

// Connection retrieves the i2c connection to the device.
func (s *Si4703Driver) Connection() gobot.Connection {
	return s.i2cConnector.(gobot.Connection)
}

// Poweron resets the chip into 2-wire mode, starts the oscillator and
// enables the receiver with RDS on and the volume at its lowest.
func (s *Si4703Driver) Poweron() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.poweron()
}

// Shutdown powers the receiver down. Only Poweron brings it back.
func (s *Si4703Driver) Shutdown() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.shutdown()
}

// Reset power cycles the receiver and restores the RDS interrupt
// routing if it was enabled.
func (s *Si4703Driver) Reset() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.shutdown(); err != nil {
		return err
	}
	if err := s.poweron(); err != nil {
		return err
	}
	if !s.interruptActive {
		return nil
	}
	return s.update(routeRDSInterrupt)
}

func (s *Si4703Driver) poweron() error {
	if err := s.reset(); err != nil {
		return err
	}

	err := s.update(func(r *registers) {
		r[regTest1] = oscillatorEnable
	})
	if err != nil {
		return err
	}

	// wait for the clock to settle
	s.sleep(oscillatorSettle)

	err = s.update(func(r *registers) {
		r[regPowerCfg] = powerCfgEnable
		r.setFlag(fieldRDSEnable, true)

		switch s.area {
		case AreaEU:
			r.setFlag(fieldDeEmphasis, true)
			r.set(fieldSpacing, spacing100kHz)
		case AreaUS:
			r.set(fieldSpacing, spacing200kHz)
		}

		r.set(fieldVolume, volumeStartup)
		r.set(fieldSeekThreshold, seekThresholdMid)
		r.set(fieldSeekSNR, seekSNRMid)
		r.set(fieldSeekCount, seekCountMid)
	})
	if err != nil {
		return err
	}

	s.sleep(powerUpSettle)

	if s.debugMode {
		s.debugLog("Si4703 powered on, device 0x%04X chip 0x%04X\n", s.regs[regDeviceID], s.regs[regChipID])
	}
	return nil
}

func (s *Si4703Driver) shutdown() error {
	return s.update(func(r *registers) {
		r[regTest1] = powerDownTest1
		r[regPowerCfg] = powerDownPowerCfg
		r[regSysConfig1] = powerDownSysConfig1
	})
}

// reset selects 2-wire mode: SDIO must be low while RST rises.
func (s *Si4703Driver) reset() (err error) {
	dw, ok := s.i2cConnector.(gpio.DigitalWriter)
	if !ok {
		return fmt.Errorf("i2c connector does not have a digital writer capability")
	}

	if err = dw.DigitalWrite(s.sdioPin, low); err != nil {
		return err
	}
	s.sleep(resetSettle)

	if err = dw.DigitalWrite(s.resetPin, low); err != nil {
		return err
	}
	s.sleep(resetSettle)

	if err = dw.DigitalWrite(s.resetPin, high); err != nil {
		return err
	}
	s.sleep(resetSettle)
	return nil
}

// SetRDSCallbacks registers the functions receiving decoded RDS data.
// Any of them may be nil. They are called outside of the driver lock,
// so they may use the driver.
func (s *Si4703Driver) SetRDSCallbacks(onStation func(name string), onText func(text string), onClock func(hours, minutes int)) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.onStation = onStation
	s.onText = onText
	s.onClock = onClock
}

// deliver queues an RDS result. Results go out in unlockAndDeliver.
func (s *Si4703Driver) deliverStation(name string) {
	cb := s.onStation
	s.pending = append(s.pending, func() {
		if cb != nil {
			cb(name)
		}
		s.Publish(StationEvent, name)
	})
}

func (s *Si4703Driver) deliverText(text string) {
	cb := s.onText
	s.pending = append(s.pending, func() {
		if cb != nil {
			cb(text)
		}
		s.Publish(RadiotextEvent, text)
	})
}

func (s *Si4703Driver) deliverClock(hours, minutes int) {
	cb := s.onClock
	s.pending = append(s.pending, func() {
		if cb != nil {
			cb(hours, minutes)
		}
		s.Publish(ClockEvent, Clock{Hours: hours, Minutes: minutes})
	})
}

// unlockAndDeliver releases the driver lock, then runs the queued
// RDS results.
func (s *Si4703Driver) unlockAndDeliver() {
	pending := s.pending
	s.pending = nil
	s.mtx.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// Si4703Config holds the additional configuration needed for Si4703Driver.
type Si4703Config struct {
	Area         Area
	ResetPin     string
	SDIOPin      string
	InterruptPin string
	Frequency    uint16
	Volume       int
	TuneTimeout  time.Duration
	DebugMode    bool
	DebugLog     func(format string, v ...interface{})
	Log          func(format string, v ...interface{})
}

// Validate ensures that our Si4703Driver configuration is valid.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
func (c *Si4703Config) Validate() error {
	if c.Log == nil {
		panic("logging function cannot be nil. Use something like log.Printf or an empty function instead")
	}
	if c.DebugMode && c.DebugLog == nil {
		panic("cannot use debugging mode without configuring a DebugLog function, e.g. log.Printf")
	}

	switch c.Area {
	case "":
		c.Area = AreaEU
	case AreaEU, AreaUS:
	default:
		return fmt.Errorf("unknown area %q, use %q or %q", c.Area, AreaEU, AreaUS)
	}

	if c.ResetPin == "" {
		c.ResetPin = DefaultResetPin
	}
	if c.SDIOPin == "" {
		c.SDIOPin = DefaultSDIOPin
	}

	// 0 keeps whatever channel the chip powers up on
	if c.Frequency != 0 && (c.Frequency < FrequencyMin || c.Frequency > FrequencyMax) {
		c.Log("FM frequency %d not in 87.50 MHz ... 108 MHz bounds, defaulting to %d\n", c.Frequency, FrequencyMin)
		c.Frequency = FrequencyMin
	}

	// 0 keeps the power on volume
	if c.Volume < volumeMin {
		c.Log("Volume %d < %d. Adjusting to minimum of %d.\n", c.Volume, volumeMin, volumeMin)
		c.Volume = volumeMin
	} else if c.Volume > volumeMax {
		c.Log("Volume %d > %d. Adjusting to maximum of %d.\n", c.Volume, volumeMax, volumeMax)
		c.Volume = volumeMax
	}

	if c.TuneTimeout <= 0 {
		c.TuneTimeout = DefaultTuneTimeout
	}

	return nil
}

// NewSi4703Driver creates a new GoBot driver for our FM receiver.
func NewSi4703Driver(connector i2c.Connector, cfg Si4703Config, options ...func(i2c.Config)) (*Si4703Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Si4703Driver{
		name:         gobot.DefaultName("Si4703Driver"),
		i2cConnector: connector,
		Config:       i2c.NewConfig(),
		Eventer:      gobot.NewEventer(),
		Commander:    gobot.NewCommander(),

		area:         cfg.Area,
		lowerBound:   FrequencyMin,
		upperBound:   FrequencyMax,
		step:         cfg.Area.step(),
		resetPin:     cfg.ResetPin,
		sdioPin:      cfg.SDIOPin,
		interruptPin: cfg.InterruptPin,
		frequency:    cfg.Frequency,
		volume:       cfg.Volume,
		tuneTimeout:  cfg.TuneTimeout,
		debugMode:    cfg.DebugMode,
		log:          cfg.Log,
		debugLog:     cfg.DebugLog,
		sleep:        time.Sleep,
		rdsReady:     make(chan struct{}, 1),
	}

	res.decoder = NewRDSDecoder(RDSHandlers{
		Station: res.deliverStation,
		Text:    res.deliverText,
		Clock:   res.deliverClock,
	})

	res.AddEvent(StationEvent)
	res.AddEvent(RadiotextEvent)
	res.AddEvent(ClockEvent)
	res.AddEvent(ErrorEvent)
	res.addCommands()

	for _, option := range options {
		option(res)
	}

	return res, nil
}
