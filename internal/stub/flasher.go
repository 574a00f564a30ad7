package stub

import (
	"bytes"
	"fmt"
)

// flashSignature marks the 4-byte slot in the flasher stub that gets
// overwritten with the erase-parameter word before upload.
var flashSignature = []byte{0x0A, 0xBC, 0xDE, 0xF0}

// Flasher is the flash-erase-and-program stub, entered at 0x4100.
var Flasher = NewTemplate(0x4100, 0x4100, flasherBody())

func flasherBody() []byte {
	body := make([]byte, 256)
	copy(body[168:], flashSignature)
	return body
}

// PatchFlashParam returns a fresh copy of the flasher stub body with its
// signature word replaced by the erase-parameter word (block count in the
// low 24 bits, bank-2 bit 30, slow-flash bit 31), encoded big-endian.
func (t Template) PatchFlashParam(param uint32) ([]byte, error) {
	body := t.Bytes()
	idx := bytes.Index(body, flashSignature)
	if idx < 0 {
		return nil, fmt.Errorf("flasher stub: signature not found")
	}
	body[idx] = byte(param >> 24)
	body[idx+1] = byte(param >> 16)
	body[idx+2] = byte(param >> 8)
	body[idx+3] = byte(param)
	return body, nil
}
