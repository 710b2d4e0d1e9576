package radio

import (
	"fmt"
	"time"

	"gobot.io/x/gobot/drivers/gpio"
)

// interruptInterval is how often the interrupt line is sampled. The
// chip holds GPIO2 low for 5 ms on every RDS group.
const interruptInterval = time.Millisecond

// RDSCheck reads the registers and decodes the RDS group if the chip has
// one ready. It reports whether a group was decoded. Use it to poll when
// the interrupt line is not wired.
func (s *Si4703Driver) RDSCheck() (bool, error) {
	s.mtx.Lock()
	defer s.unlockAndDeliver()

	if err := s.readRegisters(); err != nil {
		return false, err
	}
	if !s.regs.flag(fieldRDSReady) {
		return false, nil
	}
	s.decodeRDS()
	return true, nil
}

// EnableRDSInterrupt routes the RDS ready interrupt to GPIO2 and starts
// decoding every group signalled on the configured interrupt pin.
func (s *Si4703Driver) EnableRDSInterrupt() error {
	if s.interruptPin == "" {
		return fmt.Errorf("no RDS interrupt pin configured")
	}
	dr, ok := s.i2cConnector.(gpio.DigitalReader)
	if !ok {
		return fmt.Errorf("i2c connector does not have a digital reader capability")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.interruptActive {
		return nil
	}
	if err := s.update(routeRDSInterrupt); err != nil {
		return err
	}

	// one button and one subscription for the life of the driver, the
	// gobot eventer never ends a subscription goroutine
	if s.interrupt == nil {
		// the line idles high and is pulled low by the chip
		button := gpio.NewButtonDriver(dr, s.interruptPin, interruptInterval)
		button.DefaultState = high

		if err := button.On(gpio.ButtonPush, func(interface{}) {
			s.signalRDS()
		}); err != nil {
			return err
		}
		s.interrupt = button
	}

	if err := s.interrupt.Start(); err != nil {
		return err
	}

	// pushes seen before the loop runs wait in rdsReady
	s.rdsDone = make(chan struct{})
	s.rdsWG.Add(1)
	go s.rdsLoop(s.rdsReady, s.rdsDone)

	s.interruptActive = true
	if s.debugMode {
		s.debugLog("RDS interrupt enabled on pin %s\n", s.interruptPin)
	}
	return nil
}

func routeRDSInterrupt(r *registers) {
	r.setFlag(fieldRDSInterrupt, true)
	r.set(fieldGPIO2, gpio2RDSInterrupt)
}

// signalRDS is the falling edge handler. It never blocks: a group that
// arrives while the previous one is still queued is dropped, the chip
// only holds the latest one anyway. rdsReady is never replaced, so no
// lock is needed.
func (s *Si4703Driver) signalRDS() {
	select {
	case s.rdsReady <- struct{}{}:
	default:
	}
}

func (s *Si4703Driver) rdsLoop(ready <-chan struct{}, done <-chan struct{}) {
	defer s.rdsWG.Done()

	for {
		select {
		case <-done:
			return
		case <-ready:
		}

		s.mtx.Lock()
		err := s.readRegisters()
		if err == nil {
			s.decodeRDS()
		}
		s.unlockAndDeliver()

		if err != nil {
			s.log("RDS interrupt: %v\n", err)
			s.Publish(ErrorEvent, err)
		}
	}
}

// decodeRDS hands the RDS blocks of the shadow to the decoder.
// The caller holds mtx.
func (s *Si4703Driver) decodeRDS() {
	s.decoder.Process(s.regs[regRDSA], s.regs[regRDSB], s.regs[regRDSC], s.regs[regRDSD])
}

// stopRDSInterrupt stops watching the interrupt line and waits for the
// decoding goroutine to finish. The button is kept for a later
// EnableRDSInterrupt.
func (s *Si4703Driver) stopRDSInterrupt() error {
	s.mtx.Lock()
	active, button, done := s.interruptActive, s.interrupt, s.rdsDone
	s.interruptActive = false
	s.mtx.Unlock()

	if !active {
		return nil
	}
	err := button.Halt()

	// the loop takes mtx, so it is stopped without holding it
	close(done)
	s.rdsWG.Wait()
	return err
}
