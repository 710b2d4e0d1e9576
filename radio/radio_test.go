package radio

import (
	"errors"
	"io/ioutil"
	"log"
	"sync"
	"time"
)

// testChip emulates the register behaviour of the Si4703 that the
// driver depends on.
type testChip struct {
	mtx sync.Mutex

	regs registers

	reads  int
	writes int

	// stuck keeps STC low forever
	stuck bool

	// stations are the channels a seek stops on
	stations []uint16

	readErr   error
	writeErr  error
	shortRead bool
}

func (c *testChip) read(buff []byte) (int, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.reads++
	if c.readErr != nil {
		return 0, c.readErr
	}

	n := len(buff)
	if c.shortRead {
		n = 4
	}
	reg := readStart
	for i := 0; i+1 < n; i += 2 {
		buff[i] = byte(c.regs[reg] >> 8)
		buff[i+1] = byte(c.regs[reg] & 0xFF)
		reg = (reg + 1) % registerCount
	}
	return n, nil
}

func (c *testChip) write(buff []byte) (int, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.writes++
	if c.writeErr != nil {
		return 0, c.writeErr
	}

	reg := writeStart
	for i := 0; i+1 < len(buff) && reg <= writeEnd; i += 2 {
		c.regs[reg] = uint16(buff[i])<<8 | uint16(buff[i+1])
		reg++
	}

	tune := c.regs.flag(fieldTune)
	seek := c.regs.flag(fieldSeek)
	switch {
	case !tune && !seek:
		c.regs.setFlag(fieldSeekComplete, false)
		c.regs.setFlag(fieldSeekFail, false)
	case c.stuck:
	case tune:
		c.regs.set(fieldReadChannel, c.regs.get(fieldChannel))
		c.regs.setFlag(fieldSeekComplete, true)
	case seek:
		c.seek(c.regs.flag(fieldSeekUp))
		c.regs.setFlag(fieldSeekComplete, true)
	}
	return len(buff), nil
}

func (c *testChip) seek(up bool) {
	current := c.regs.get(fieldReadChannel)
	found := false
	var next uint16
	for _, ch := range c.stations {
		if up && ch > current && (!found || ch < next) {
			next, found = ch, true
		}
		if !up && ch < current && (!found || ch > next) {
			next, found = ch, true
		}
	}
	if !found {
		c.regs.setFlag(fieldSeekFail, true)
		return
	}
	c.regs.set(fieldReadChannel, next)
}

func (c *testChip) reg(r register) uint16 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.regs[r]
}

func (c *testChip) setReg(r register, v uint16) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.regs[r] = v
}

func (c *testChip) setRDS(a, b, cc, d uint16) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.regs[regRDSA] = a
	c.regs[regRDSB] = b
	c.regs[regRDSC] = cc
	c.regs[regRDSD] = d
	c.regs.setFlag(fieldRDSReady, true)
}

func (c *testChip) counts() (reads, writes int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.reads, c.writes
}

func NewI2cTestAdaptor(chip *testChip) *I2CTestAdaptor {
	return &I2CTestAdaptor{
		i2cConnectErr: false,
		pinLevels:     map[string]int{},
		i2cReadImpl: func(t *I2CTestAdaptor, buff []byte) (int, error) {
			return chip.read(buff)
		},
		i2cWriteImpl: func(t *I2CTestAdaptor, buff []byte) (int, error) {
			t.lastWritten = make([]byte, len(buff))
			copy(t.lastWritten, buff)
			return chip.write(buff)
		},
	}
}

func newTestChip() *testChip {
	c := &testChip{}
	c.regs[regDeviceID] = 0x1242
	c.regs[regChipID] = 0x1253
	c.regs[regTest2] = 0x0BEE
	c.regs[regBootConfig] = 0x0F00
	return c
}

var errBus = errors.New("bus error")

var discard = log.New(ioutil.Discard, "", 0).Printf

// newTestDriver returns a started driver that does not sleep.
func newTestDriver(cfg Si4703Config) (*Si4703Driver, *testChip, *I2CTestAdaptor, error) {
	chip := newTestChip()
	adaptor := NewI2cTestAdaptor(chip)

	if cfg.Log == nil {
		cfg.Log = discard
	}
	d, err := NewSi4703Driver(adaptor, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	d.sleep = func(time.Duration) {}

	if err = d.Start(); err != nil {
		return nil, nil, nil, err
	}
	return d, chip, adaptor, nil
}
