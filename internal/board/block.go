package board

import "fmt"

// EncodeMidEnd encodes a 32-bit value using the board's middle-endian
// layout: each 16-bit half is byte-swapped relative to little-endian,
// a quirk of the receiver having no byte-swap on this data path.
// Negative sentinels (-1, -2) round-trip as their 32-bit two's-complement
// pattern.
func EncodeMidEnd(v int32) [4]byte {
	u := uint32(v)
	return [4]byte{
		byte(u >> 16),
		byte(u >> 24),
		byte(u),
		byte(u >> 8),
	}
}

// DecodeMidEnd is the inverse of EncodeMidEnd.
func DecodeMidEnd(b []byte) int32 {
	u := uint32(b[0])<<16 | uint32(b[1])<<24 | uint32(b[2]) | uint32(b[3])<<8
	return int32(u)
}

// swapPairs byte-pair-swaps data: out[i]=in[i+1], out[i+1]=in[i]. An odd
// trailing byte is treated as paired with an implicit zero byte, so it
// lands swapped one position past src's end: dst[n-1]=0, dst[n]=src[n-1].
// dst must have room for n+1 bytes when n is odd.
func swapPairs(dst, src []byte) {
	n := len(src)
	for i := 0; i+1 < n; i += 2 {
		dst[i] = src[i+1]
		dst[i+1] = src[i]
	}
	if n%2 == 1 {
		dst[n-1] = 0
		dst[n] = src[n-1]
	}
}

// EncodeBlock assembles a 4080-byte block: payload byte-pair-swapped into
// [0..len], trailer carrying base, entry, the hint byte for the *other*
// window relative to target, and length.
//
// payload must be <= PayloadSize bytes. Odd lengths are padded with one
// trailing zero byte.
func EncodeBlock(payload []byte, base, entry int32, target Window, payloadLen int) ([WindowSize]byte, error) {
	if len(payload) > PayloadSize {
		return [WindowSize]byte{}, fmt.Errorf("payload too large: %d > %d", len(payload), PayloadSize)
	}
	if payloadLen > PayloadSize {
		return [WindowSize]byte{}, fmt.Errorf("payload length too large: %d > %d", payloadLen, PayloadSize)
	}

	var block [WindowSize]byte
	swapPairs(block[:len(payload)+len(payload)%2], payload)

	baseBytes := EncodeMidEnd(base)
	copy(block[offBase:offBase+4], baseBytes[:])

	entryBytes := EncodeMidEnd(entry)
	copy(block[offEntry:offEntry+4], entryBytes[:])

	block[offHint0] = 0
	block[offHint1] = target.Other().HintByte()

	block[offLength] = byte(payloadLen)
	block[offLength+1] = byte(payloadLen >> 8)

	return block, nil
}

// DecodedBlock is the result of decoding a block received from the board.
type DecodedBlock struct {
	Payload []byte // length Length, NUL-terminated at Length if room allows
	Base    int32
	Entry   int32
	Length  int
}

// DecodeReceivedBlock byte-pair-swaps the whole 4080-byte block (trailer
// included) to recover the payload, and decodes the trailer fields from
// their wire encoding (middle-endian addresses, little-endian length), so
// it is the inverse of EncodeBlock. The returned payload length is
// clamped to PayloadSize.
func DecodeReceivedBlock(raw [WindowSize]byte) DecodedBlock {
	var block [WindowSize]byte
	swapPairs(block[:], raw[:])

	length := int(LengthOf(raw[offLength : offLength+2]))
	if length > PayloadSize {
		length = PayloadSize
	}

	payload := make([]byte, length+1)
	copy(payload, block[:length])
	// payload[length] is left as 0, enforcing the NUL terminator that
	// text-handling callers rely on.

	return DecodedBlock{
		Payload: payload[:length],
		Base:    DecodeMidEnd(raw[offBase : offBase+4]),
		Entry:   DecodeMidEnd(raw[offEntry : offEntry+4]),
		Length:  length,
	}
}

// LengthOf reads just the 16-bit length/state word from a freshly-read
// 2-byte control response at window+0xFEA, without decoding the whole
// block. The board stores this little-endian on the wire before any
// byte-pair swap is needed (only whole-block reads are swapped).
func LengthOf(b []byte) LengthState {
	return LengthState(uint16(b[0]) | uint16(b[1])<<8)
}

// OffsetLength returns the window-relative offset of the length field,
// for callers polling just those two bytes without decoding a whole block.
func OffsetLength() uint16 { return offLength }
