package ops

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"jcp2/internal/board"
	"jcp2/internal/console"
	"jcp2/internal/stub"
)

// SerialInfoDeadline bounds the initial poll for a ready serial-info
// structure before falling back to uploading the serial-reader stub.
const SerialInfoDeadline = 2 * time.Second

// SerialInfo is the parsed result of reading the board's serial-info
// structure from W1: BCD-encoded BIOS version and serial number.
type SerialInfo struct {
	VersionMajor, VersionMinor, VersionPatch byte
	SerialHi, SerialLo                       byte
}

func (s SerialInfo) String() string {
	return fmt.Sprintf("Boot version %02x.%02x.%02x, Serial %02x%02x",
		s.VersionMajor, s.VersionMinor, s.VersionPatch, s.SerialHi, s.SerialLo)
}

func readRawW1(ctx context.Context, t *Toolset) ([]byte, error) {
	return t.rawRead(ctx, uint16(board.W1), 12)
}

// SerialInfoQuick waits up to SerialInfoDeadline for W1's length field to
// settle on the "ready" masked pattern, then reads and decodes the
// 12-byte serial-info structure. If the pattern never settles, it falls
// back to uploading the serial-reading stub and entering the console
// loop, returning ok=false to signal that no structured info was read.
func (t *Toolset) SerialInfoQuick(ctx context.Context, proto console.Protocol) (info SerialInfo, ok bool, err error) {
	ctx = bg(ctx)
	deadline := time.Now().Add(SerialInfoDeadline)

	for time.Now().Before(deadline) {
		raw, rerr := t.rawRead(ctx, uint16(board.W1)+board.OffsetLength(), 2)
		if rerr == nil {
			v := board.LengthOf(raw)
			if uint16(v)&0xF0FF == 0xF0FF {
				buf, rerr := readRawW1(ctx, t)
				if rerr == nil && bytes.HasPrefix(buf, stub.SerialMagic) {
					return decodeSerialInfo(buf), true, nil
				}
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	sendOpts := board.SendOptions{OnlyBoot: true}
	if err := t.Session.SendPayload(ctx, stub.SerialReader.Bytes(), stub.SerialReader.Base, stub.SerialReader.Entry, sendOpts); err != nil {
		return SerialInfo{}, false, err
	}
	loop := console.NewLoop(t.Session, proto, t.Log)
	return SerialInfo{}, false, loop.Run(ctx)
}

func decodeSerialInfo(buf []byte) SerialInfo {
	return SerialInfo{
		VersionMajor: buf[4],
		VersionMinor: buf[5],
		VersionPatch: buf[6],
		SerialHi:     buf[8],
		SerialLo:     buf[9],
	}
}

// rawRead exposes the session's underlying control-transfer read for the
// handful of operations (serial info, BIOS version probe) that need to
// peek at a window outside the normal block protocol.
func (t *Toolset) rawRead(ctx context.Context, offset uint16, n int) ([]byte, error) {
	return t.Session.RawRead(ctx, offset, n)
}

var bigDigitRows = map[byte][5]string{
	'0': {" ## ", "#  #", "#  #", "#  #", " ## "},
	'1': {" #  ", "##  ", " #  ", " #  ", "### "},
	'2': {" ## ", "#  #", "  # ", " #  ", "####"},
	'3': {"### ", "   #", " ## ", "   #", "### "},
	'4': {"#  #", "#  #", "####", "   #", "   #"},
	'5': {"####", "#   ", "### ", "   #", "### "},
	'6': {" ## ", "#   ", "### ", "#  #", " ## "},
	'7': {"####", "   #", "  # ", " #  ", " #  "},
	'8': {" ## ", "#  #", " ## ", "#  #", " ## "},
	'9': {" ## ", "#  #", " ###", "   #", " ## "},
}

// SerialBanner renders a serial number / BIOS version as a multi-line
// big-digit banner, recovered from the original tool's big-digit serial
// display (an undocumented `-*` feature).
func SerialBanner(info SerialInfo) string {
	digits := fmt.Sprintf("%02x%02x%02x-%02x%02x", info.VersionMajor, info.VersionMinor, info.VersionPatch, info.SerialHi, info.SerialLo)

	var rows [5]string
	for _, d := range digits {
		glyph, ok := bigDigitRows[byte(d)]
		if !ok {
			for i := range rows {
				rows[i] += "  "
			}
			continue
		}
		for i := range rows {
			rows[i] += glyph[i] + " "
		}
	}

	out := ""
	for _, row := range rows {
		out += row + "\n"
	}
	return out
}
