package stub

// SerialMagic tags the 12-byte serial-info structure a serial/version
// stub writes back to W1: bytes 0-3 are this magic, 4-6 carry the BCD
// BIOS version, 8-9 the BCD serial number.
var SerialMagic = []byte{0x57, 0xFA, 0x0D, 0xF0}

// SerialReader discovers the board's serial number and BIOS version and
// reports them through W1, used both as the serial-info fallback and as
// the BIOS-upgrade version probe.
var SerialReader = NewTemplate(0x5000, 0x5000, make([]byte, 128))
