package radio

// register is the index of one of the 16 words of the chip register map.
type register uint8

// Register map of the Si4703, see AN230 section 3.
//
//goland:noinspection GoUnusedConst
const (
	regDeviceID   register = 0x00
	regChipID     register = 0x01
	regPowerCfg   register = 0x02
	regChannel    register = 0x03
	regSysConfig1 register = 0x04
	regSysConfig2 register = 0x05
	regSysConfig3 register = 0x06
	regTest1      register = 0x07
	// regTest2 and regBootConfig are reserved, they are carried
	// through a read before every write and never sent back.
	regTest2      register = 0x08
	regBootConfig register = 0x09
	regStatusRSSI register = 0x0A
	regReadChan   register = 0x0B
	regRDSA       register = 0x0C
	regRDSB       register = 0x0D
	regRDSC       register = 0x0E
	regRDSD       register = 0x0F

	registerCount = 16
)

const (
	// readStart is where the chip's internal read pointer begins.
	readStart = regStatusRSSI

	// writeStart and writeEnd bound the writable control registers.
	writeStart = regPowerCfg
	writeEnd   = regTest1

	readSize  = registerCount * 2
	writeSize = (int(writeEnd-writeStart) + 1) * 2
)

// field is a named view over a run of bits inside one register.
type field struct {
	reg   register
	shift uint
	width uint
}

func (f field) mask() uint16 {
	return uint16((1<<f.width)-1) << f.shift
}

// Bitfields used by the driver.
var (
	// POWERCFG
	fieldSoftMuteDisable = field{regPowerCfg, 15, 1}
	fieldMuteDisable     = field{regPowerCfg, 14, 1}
	fieldMono            = field{regPowerCfg, 13, 1}
	fieldRDSMode         = field{regPowerCfg, 11, 1}
	fieldSeekMode        = field{regPowerCfg, 10, 1}
	fieldSeekUp          = field{regPowerCfg, 9, 1}
	fieldSeek            = field{regPowerCfg, 8, 1}
	fieldEnable          = field{regPowerCfg, 0, 1}

	// CHANNEL
	fieldTune    = field{regChannel, 15, 1}
	fieldChannel = field{regChannel, 0, 9}

	// SYSCONFIG1
	fieldRDSInterrupt = field{regSysConfig1, 15, 1}
	fieldRDSEnable    = field{regSysConfig1, 12, 1}
	fieldDeEmphasis   = field{regSysConfig1, 11, 1}
	fieldGPIO2        = field{regSysConfig1, 2, 2}

	// SYSCONFIG2
	fieldSeekThreshold = field{regSysConfig2, 8, 8}
	fieldSpacing       = field{regSysConfig2, 4, 2}
	fieldVolume        = field{regSysConfig2, 0, 4}

	// SYSCONFIG3
	fieldSeekSNR   = field{regSysConfig3, 4, 4}
	fieldSeekCount = field{regSysConfig3, 0, 4}

	// STATUSRSSI
	fieldRDSReady     = field{regStatusRSSI, 15, 1}
	fieldSeekComplete = field{regStatusRSSI, 14, 1}
	fieldSeekFail     = field{regStatusRSSI, 13, 1}
	fieldRDSSynced    = field{regStatusRSSI, 11, 1}
	fieldStereo       = field{regStatusRSSI, 8, 1}
	fieldRSSI         = field{regStatusRSSI, 0, 8}

	// READCHAN
	fieldReadChannel = field{regReadChan, 0, 10}
)

// Register values taken from AN230.
const (
	oscillatorEnable = 0x8100

	// 0x4001: enable, mute disabled
	powerCfgEnable = 0x4001

	powerDownTest1      = 0x7C04
	powerDownPowerCfg   = 0x002A
	powerDownSysConfig1 = 0x0041

	seekThresholdMid = 0x10
	seekSNRMid       = 0x3
	seekCountMid     = 0x3

	spacing200kHz = 0x0
	spacing100kHz = 0x1

	// gpio2RDSInterrupt routes the STC/RDS interrupt to GPIO2.
	gpio2RDSInterrupt = 0x1

	volumeMin = 0
	volumeMax = 15
)

// registers is the in-memory shadow of the chip register map.
// It is only authoritative right after readAll.
type registers [registerCount]uint16

func (r *registers) get(f field) uint16 {
	return (r[f.reg] & f.mask()) >> f.shift
}

func (r *registers) set(f field, v uint16) {
	m := f.mask()
	r[f.reg] = (r[f.reg] &^ m) | ((v << f.shift) & m)
}

func (r *registers) flag(f field) bool {
	return r.get(f) != 0
}

func (r *registers) setFlag(f field, on bool) {
	if on {
		r.set(f, 1)
		return
	}
	r.set(f, 0)
}

// decode fills the shadow from a block read. The chip starts
// sending at 0x0A and wraps to 0x00 after 0x0F.
func (r *registers) decode(buf []byte) {
	reg := readStart
	for i := 0; i < registerCount; i++ {
		r[reg] = uint16(buf[i*2])<<8 | uint16(buf[i*2+1])
		reg = (reg + 1) % registerCount
	}
}

// encode returns the writable control registers, big-endian.
func (r *registers) encode() []byte {
	buf := make([]byte, writeSize)
	for i, reg := 0, writeStart; reg <= writeEnd; i, reg = i+2, reg+1 {
		buf[i] = uint8(r[reg] >> 8)
		buf[i+1] = uint8(r[reg] & 0xFF)
	}
	return buf
}
