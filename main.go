package main

import (
	"flag"
	"io"
	"log"
	"os"
	"sync"

	"fmtuner/config"
	"fmtuner/display"
	"fmtuner/radio"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/platforms/raspi"
	"gopkg.in/lumberjack.v2"
)

var configPath = flag.String("config", "fmtuner.yaml", "Configuration file path")

// screen keeps what the display shows and redraws it on RDS updates.
type screen struct {
	mtx  sync.Mutex
	lcd  *display.SunFounderLCD1602Driver
	rdio *radio.Si4703Driver

	text     string
	clock    radio.Clock
	hasClock bool
}

func (s *screen) station(name string) {
	log.Printf("station: %q\n", name)

	freq, err := s.rdio.Frequency()
	if err != nil {
		log.Println(err)
		return
	}
	if s.lcd == nil {
		return
	}
	if err = s.lcd.ShowStation(freq, name); err != nil {
		log.Println(err)
	}
}

func (s *screen) radiotext(text string) {
	log.Printf("radiotext: %q\n", text)

	s.mtx.Lock()
	s.text = text
	s.mtx.Unlock()
	s.redraw()
}

func (s *screen) setClock(hours, minutes int) {
	clock := radio.Clock{Hours: hours, Minutes: minutes}
	log.Printf("clock: %s\n", clock)

	s.mtx.Lock()
	s.clock = clock
	s.hasClock = true
	s.mtx.Unlock()

	s.redraw()
}

func (s *screen) redraw() {
	if s.lcd == nil {
		return
	}

	s.mtx.Lock()
	line := s.text
	if s.hasClock {
		line = s.clock.String() + " " + line
	}
	s.mtx.Unlock()

	if err := s.lcd.ShowText(line); err != nil {
		log.Println(err)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalln(err)
	}

	if cfg.Logging.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSize,    // megabytes
			MaxBackups: cfg.Logging.MaxBackups, // number of backups
			MaxAge:     cfg.Logging.MaxAge,     // days
		}
		defer rotating.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, rotating))
	}

	adaptor := raspi.NewAdaptor()

	radioOptions := []func(i2c.Config){i2c.WithAddress(cfg.Radio.Address)}
	if cfg.Radio.Bus != 0 {
		radioOptions = append(radioOptions, i2c.WithBus(cfg.Radio.Bus))
	}
	rdio, err := radio.NewSi4703Driver(adaptor, cfg.RadioConfig(log.Printf, log.Printf), radioOptions...)
	if err != nil {
		log.Fatalln(err)
	}
	devices := []gobot.Device{rdio}

	scr := &screen{rdio: rdio}
	if cfg.Display.Enabled {
		displayOptions := []func(i2c.Config){i2c.WithAddress(cfg.Display.Address)}
		if cfg.Display.Bus != 0 {
			displayOptions = append(displayOptions, i2c.WithBus(cfg.Display.Bus))
		}
		scr.lcd, err = display.NewLCD1602Driver(adaptor, displayOptions...)
		if err != nil {
			log.Fatalln(err)
		}
		devices = append(devices, scr.lcd)
	}

	rdio.SetRDSCallbacks(scr.station, scr.radiotext, scr.setClock)

	work := func() {
		if err := rdio.On(radio.ErrorEvent, func(data interface{}) {
			log.Println(data)
		}); err != nil {
			log.Println(err)
		}

		scr.station("")

		// Start has enabled the interrupt when a pin is configured
		if cfg.RDS.InterruptPin == "" {
			gobot.Every(cfg.PollInterval(), func() {
				if _, err := rdio.RDSCheck(); err != nil {
					log.Println(err)
				}
			})
		}

		if scr.lcd != nil {
			gobot.Every(cfg.ScrollInterval(), func() {
				if err := scr.lcd.Scroll(); err != nil {
					log.Println(err)
				}
			})
		}
	}

	robot := gobot.NewRobot("FM Receiver",
		[]gobot.Connection{adaptor},
		devices,
		work,
	)

	if err = robot.Start(); err != nil {
		log.Fatalln(err)
	}
}
