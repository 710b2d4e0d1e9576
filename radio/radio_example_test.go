package radio_test

import (
	"log"
	"time"

	"fmtuner/radio"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/platforms/raspi"
)

func ExampleSi4703Driver() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	adaptor := raspi.NewAdaptor()

	radioConfig := radio.Si4703Config{
		Area:      radio.AreaEU,
		ResetPin:  "29",
		SDIOPin:   "3",
		Frequency: 9730,
		Volume:    8,
		DebugMode: false,
		Log:       log.Printf,
		DebugLog:  nil,
	}
	rdio, err := radio.NewSi4703Driver(adaptor, radioConfig)
	if err != nil {
		log.Fatalln(err)
	}

	rdio.SetRDSCallbacks(
		func(name string) { log.Printf("station: %q\n", name) },
		func(text string) { log.Printf("radiotext: %q\n", text) },
		func(hours, minutes int) { log.Printf("clock: %02d:%02d\n", hours, minutes) },
	)

	work := func() {
		if err = rdio.SeekUp(); err != nil {
			log.Fatalln(err)
		}

		gobot.Every(40*time.Millisecond, func() {
			if _, err := rdio.RDSCheck(); err != nil {
				log.Println(err)
			}
		})
	}

	robot := gobot.NewRobot("FM Receiver demo",
		[]gobot.Connection{adaptor},
		[]gobot.Device{rdio},
		work,
	)

	if err = robot.Start(); err != nil {
		log.Fatalln(err)
	}
}
