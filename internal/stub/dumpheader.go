package stub

// UniversalHeader is written first to a dump output file, identifying
// the format to downstream flash-image tooling.
var UniversalHeader = []byte{'J', 'A', 'G', 'D', 'U', 'M', 'P', 0x01}

// UniversalHeaderPad is the byte offset UniversalHeader is padded to
// with 0xFF before the standard-values block follows.
const UniversalHeaderPad = 0x400

// StandardValues carries the fixed flash-geometry metadata that follows
// the universal header in a dump file.
var StandardValues = []byte{0x00, 0x20, 0x00, 0x00}

// StandardValuesPad is the byte offset StandardValues is padded to with
// 0xFF before the raw flash contents follow.
const StandardValuesPad = 0x2000
