package radio

import (
	"bytes"
	"strings"
)

// RDS group types, as the 4 bit type in the high nibble and
// 0xA or 0xB for the version in the low nibble.
const (
	groupStation   = 0x0A
	groupStationB  = 0x0B
	groupRadiotext = 0x2A
	groupClock     = 0x4A
)

const (
	stationNameLen = 8
	radiotextLen   = 64

	// two guard slots past the last segment
	stationBufLen   = stationNameLen + 2
	radiotextBufLen = radiotextLen + 2

	allSegments = 0x0F

	minutesPerDay = 24 * 60
)

// RDSHandlers receive the decoded RDS data. Nil handlers are skipped.
type RDSHandlers struct {
	Station func(name string)
	Text    func(text string)
	Clock   func(hours, minutes int)
}

// RDSDecoder rebuilds the station name, radiotext and clock time from
// RDS groups. It is not safe for concurrent use.
type RDSDecoder struct {
	handlers RDSHandlers

	// station name: every two-character segment has to be seen twice
	// in a row before it is moved to the confirmed buffer.
	psCurrent   [stationBufLen]byte
	psConfirmed [stationBufLen]byte
	psSegments  uint8

	text      [radiotextBufLen]byte
	textAB    bool
	textIndex int

	lastMinutes int
}

// NewRDSDecoder returns a decoder reporting to handlers.
func NewRDSDecoder(handlers RDSHandlers) *RDSDecoder {
	return &RDSDecoder{handlers: handlers}
}

// Reset clears everything decoded so far.
func (d *RDSDecoder) Reset() {
	handlers := d.handlers
	*d = RDSDecoder{handlers: handlers}
}

// Process decodes one RDS group. A zero block A means the receiver
// lost sync: the state is dropped and empty values are reported.
func (d *RDSDecoder) Process(a, b, c, e uint16) {
	if a == 0 {
		d.Reset()
		if d.handlers.Station != nil {
			d.handlers.Station("")
		}
		if d.handlers.Text != nil {
			d.handlers.Text("")
		}
		return
	}

	switch groupType(b) {
	case groupStation, groupStationB:
		d.station(b, e)
	case groupRadiotext:
		d.radiotext(b, c, e)
	case groupClock:
		d.clock(c, e)
	}
}

func groupType(b uint16) uint16 {
	return 0x0A | (b&0xF000)>>8 | (b&0x0800)>>11
}

func (d *RDSDecoder) station(b, e uint16) {
	segment := b & 0x0003
	idx := 2 * int(segment)
	c1, c2 := byte(e>>8), byte(e&0x00FF)

	if d.psCurrent[idx] != c1 || d.psCurrent[idx+1] != c2 {
		d.psCurrent[idx] = c1
		d.psCurrent[idx+1] = c2
		return
	}

	d.psConfirmed[idx] = c1
	d.psConfirmed[idx+1] = c2
	d.psSegments |= 1 << segment

	if idx != stationNameLen-2 || d.psSegments != allSegments {
		return
	}
	if d.psCurrent == d.psConfirmed && d.handlers.Station != nil {
		d.handlers.Station(string(d.psConfirmed[:stationNameLen]))
	}
}

func (d *RDSDecoder) radiotext(b, c, e uint16) {
	ab := b&0x0010 != 0
	idx := 4 * int(b&0x000F)

	// the index starting over means the previous message is done
	if idx < d.textIndex && d.handlers.Text != nil {
		d.handlers.Text(radiotextString(d.text[:radiotextLen]))
	}
	d.textIndex = idx

	if ab != d.textAB {
		d.textAB = ab
		d.text = [radiotextBufLen]byte{}
	}

	d.text[idx] = byte(c >> 8)
	d.text[idx+1] = byte(c & 0x00FF)
	d.text[idx+2] = byte(e >> 8)
	d.text[idx+3] = byte(e & 0x00FF)
}

func (d *RDSDecoder) clock(c, e uint16) {
	offset := int(e & 0x3F)
	minutes := int((e >> 6) & 0x3F)
	minutes += 60 * int((c&0x0001)<<4|(e>>12)&0x0F)

	// local offset in half hours, bit 5 is the sign
	if offset&0x20 != 0 {
		minutes -= 30 * (offset & 0x1F)
	} else {
		minutes += 30 * (offset & 0x1F)
	}
	minutes = (minutes%minutesPerDay + minutesPerDay) % minutesPerDay

	// lastMinutes only moves when a Clock handler is set
	if d.handlers.Clock == nil || minutes == d.lastMinutes {
		return
	}
	d.lastMinutes = minutes
	d.handlers.Clock(minutes/60, minutes%60)
}

// radiotextString cuts the text at the carriage return ending a message
// and blanks the segments that were never received.
func radiotextString(text []byte) string {
	if i := bytes.IndexByte(text, '\r'); i >= 0 {
		text = text[:i]
	}
	text = bytes.TrimRight(text, "\x00")
	return strings.Replace(string(text), "\x00", " ", -1)
}
