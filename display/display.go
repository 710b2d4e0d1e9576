// Package display drives the SunFounder LCD1602 behind its PCF8574 I2C
// backpack and lays out the receiver state on its two lines.
package display

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"
)

const (
	// command signals that we want to send a command to the screen
	command = 0x04

	// data signals that we want to send a command to the screen
	data = 0x05

	// enable is the EN line of the backpack
	enable = 0x04

	// backlight is the backlight line of the backpack
	backlight = 0x08

	// Address is our default address
	Address = 0x27

	// Columns is the width of a line
	Columns = 16

	// scrollGap separates the end of a scrolling text from its start
	scrollGap = "   "
)

// HD44780 commands
const (
	cmdClear      = 0x01
	cmdSetAddress = 0x80
	secondLine    = 0x40
)

// initSequence switches the controller to 4 bit mode, 2 lines, display on.
var initSequence = []byte{0x33, 0x32, 0x28, 0x0C}

// SunFounderLCD1602Driver controls the LCD 1602 from SunFounder
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type SunFounderLCD1602Driver struct {
	name         string
	i2cConnector i2c.Connector
	i2c.Config
	gobot.Commander

	conn i2c.Connection

	mtx              sync.Mutex
	backlightEnabled bool
	sleep            func(time.Duration)

	// lines is what is currently shown
	lines [2]string

	scrollText   string
	scrollOffset int
}

// Name of our device
func (lcd *SunFounderLCD1602Driver) Name() string {
	return lcd.name
}

// SetName set the name of our device
func (lcd *SunFounderLCD1602Driver) SetName(name string) {
	lcd.name = name
}

// Start the device work
func (lcd *SunFounderLCD1602Driver) Start() error {
	bus := lcd.GetBusOrDefault(lcd.i2cConnector.GetDefaultBus())
	address := lcd.GetAddressOrDefault(Address)

	var err error
	lcd.conn, err = lcd.i2cConnector.GetConnection(address, bus)
	if err != nil {
		return err
	}

	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()

	for _, cmd := range initSequence {
		if err = lcd.sendCommand(cmd); err != nil {
			return err
		}
		lcd.sleep(5 * time.Millisecond)
	}

	return lcd.clearScreen()
}

// Halt stops the device in a graceful way
func (lcd *SunFounderLCD1602Driver) Halt() error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()

	if lcd.conn == nil {
		return nil
	}
	lcd.backlightEnabled = false
	return lcd.clearScreen()
}

// Connection retrieves the i2c connection to the device
func (lcd *SunFounderLCD1602Driver) Connection() gobot.Connection {
	return lcd.i2cConnector.(gobot.Connection)
}

// Send a command to the LCD
func (lcd *SunFounderLCD1602Driver) sendCommand(cmd byte) (err error) {
	return lcd.communicate(command, cmd)
}

// Send data to the LCD
func (lcd *SunFounderLCD1602Driver) sendData(cmd byte) (err error) {
	return lcd.communicate(data, cmd)
}

// write handles the actual data writing to the LCD i2c connection
func (lcd *SunFounderLCD1602Driver) write(val byte) error {
	if lcd.backlightEnabled {
		val |= backlight
	}
	return lcd.conn.WriteByte(val)
}

// pulse latches one nibble, EN high then low
func (lcd *SunFounderLCD1602Driver) pulse(nibble, cmdType byte) error {
	buf := nibble | cmdType
	if err := lcd.write(buf); err != nil {
		return err
	}
	lcd.sleep(2 * time.Millisecond)
	return lcd.write(buf &^ enable)
}

// Communicate with the LCD by sending either a command or data, high
// nibble first.
func (lcd *SunFounderLCD1602Driver) communicate(cmdType byte, cmd byte) error {
	if err := lcd.pulse(cmd&0xF0, cmdType); err != nil {
		return err
	}
	return lcd.pulse((cmd&0x0F)<<4, cmdType)
}

// EnableBacklight turns on the screen backlight
func (lcd *SunFounderLCD1602Driver) EnableBacklight() error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()
	return lcd.setBacklight(true)
}

// DisableBacklight turns off the screen backlight
func (lcd *SunFounderLCD1602Driver) DisableBacklight() error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()
	return lcd.setBacklight(false)
}

func (lcd *SunFounderLCD1602Driver) setBacklight(on bool) error {
	lcd.backlightEnabled = on
	err := lcd.write(0x00)
	lcd.sleep(2 * time.Millisecond)
	return err
}

// ClearScreen removes any message from the LCD screen
func (lcd *SunFounderLCD1602Driver) ClearScreen() error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()
	return lcd.clearScreen()
}

func (lcd *SunFounderLCD1602Driver) clearScreen() error {
	// The screen clearing commands needs to be
	// sent with the backlight turned on
	tmp := lcd.backlightEnabled
	lcd.backlightEnabled = true
	if err := lcd.sendCommand(cmdClear); err != nil {
		return err
	}

	lcd.sleep(2 * time.Millisecond)
	lcd.lines = [2]string{}

	return lcd.setBacklight(tmp)
}

// WriteLine shows msg on row 0 or 1, padded or cut to the line width.
// Rewriting the content already shown is skipped.
func (lcd *SunFounderLCD1602Driver) WriteLine(row int, msg string) error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()
	return lcd.writeLine(row, msg)
}

func (lcd *SunFounderLCD1602Driver) writeLine(row int, msg string) error {
	if row < 0 {
		row = 0
	}
	if row > 1 {
		row = 1
	}

	line := fitLine(msg)
	if lcd.lines[row] == line {
		return nil
	}
	lcd.lines[row] = ""

	addr := byte(cmdSetAddress + secondLine*row)
	if err := lcd.sendCommand(addr); err != nil {
		return err
	}
	for i := 0; i < len(line); i++ {
		if err := lcd.sendData(line[i]); err != nil {
			return err
		}
	}

	lcd.lines[row] = line
	return nil
}

// ShowStation renders the tuned frequency, in 10 kHz units, and the
// station name on the first line.
func (lcd *SunFounderLCD1602Driver) ShowStation(frequency uint16, name string) error {
	return lcd.WriteLine(0, StationLine(frequency, name))
}

// ShowText puts text on the second line. Text longer than the line
// scrolls by one character on each call to Scroll.
func (lcd *SunFounderLCD1602Driver) ShowText(text string) error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()

	lcd.scrollText = text
	lcd.scrollOffset = 0
	return lcd.writeLine(1, scrollWindow(text, 0))
}

// Scroll moves the second line one character along.
func (lcd *SunFounderLCD1602Driver) Scroll() error {
	lcd.mtx.Lock()
	defer lcd.mtx.Unlock()

	if len(lcd.scrollText) <= Columns {
		return nil
	}
	lcd.scrollOffset = (lcd.scrollOffset + 1) % (len(lcd.scrollText) + len(scrollGap))
	return lcd.writeLine(1, scrollWindow(lcd.scrollText, lcd.scrollOffset))
}

// StationLine formats the first display line, e.g. " 97.30 FM4 LIVE".
func StationLine(frequency uint16, name string) string {
	return fmt.Sprintf("%6.2f %s", float64(frequency)/100, strings.TrimSpace(name))
}

// fitLine keeps printable ASCII only, the controller ROM has no other
// glyphs in common with Unicode.
func fitLine(msg string) string {
	line := make([]byte, 0, Columns)
	for i := 0; i < len(msg) && len(line) < Columns; i++ {
		ch := msg[i]
		if ch < 0x20 || ch > 0x7E {
			ch = ' '
		}
		line = append(line, ch)
	}
	for len(line) < Columns {
		line = append(line, ' ')
	}
	return string(line)
}

func scrollWindow(text string, offset int) string {
	if len(text) <= Columns {
		return text
	}
	loop := text + scrollGap
	loop += loop
	return loop[offset : offset+Columns]
}

func (lcd *SunFounderLCD1602Driver) addCommands() {
	lcd.AddCommand("WriteLine", func(params map[string]interface{}) interface{} {
		row, _ := params["row"].(float64)
		msg, _ := params["message"].(string)
		return lcd.WriteLine(int(row), msg)
	})
	lcd.AddCommand("ShowText", func(params map[string]interface{}) interface{} {
		text, _ := params["text"].(string)
		return lcd.ShowText(text)
	})
	lcd.AddCommand("ClearScreen", func(params map[string]interface{}) interface{} {
		return lcd.ClearScreen()
	})
}

// NewLCD1602Driver creates a new GoBot driver for the receiver display
func NewLCD1602Driver(connector i2c.Connector, options ...func(i2c.Config)) (*SunFounderLCD1602Driver, error) {
	lcd := &SunFounderLCD1602Driver{
		name:             gobot.DefaultName("SunFounderLCD1602Driver"),
		i2cConnector:     connector,
		Config:           i2c.NewConfig(),
		Commander:        gobot.NewCommander(),
		backlightEnabled: true,
		sleep:            time.Sleep,
	}
	lcd.addCommands()

	for _, option := range options {
		option(lcd)
	}

	return lcd, nil
}
