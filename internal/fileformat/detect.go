// Package fileformat classifies a loaded file's byte stream into one of
// the recognized container formats and extracts the load address, entry
// address, and header length to skip.
package fileformat

import (
	"fmt"
	"strings"

	"jcp2/internal/boarderr"
)

// Kind names the recognized container formats, in detection order.
type Kind int

const (
	KindCartROM Kind = iota
	KindCartROM512
	KindCOFF
	KindELF
	KindServerExe
	KindDRIABS
	KindAlcyonABS
	KindPaddedHeaderless
	KindRomExtension
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindCartROM:
		return "cart-rom"
	case KindCartROM512:
		return "cart-rom+512"
	case KindCOFF:
		return "coff"
	case KindELF:
		return "elf"
	case KindServerExe:
		return "server-exe"
	case KindDRIABS:
		return "dri-abs"
	case KindAlcyonABS:
		return "alcyon-abs"
	case KindPaddedHeaderless:
		return "padded-headerless"
	case KindRomExtension:
		return "rom-extension"
	default:
		return "unknown"
	}
}

// ramBufSize bounds the ELF loader's section-map image, matching the
// firmware's own load-buffer size.
const ramBufSize = 2 * 1024 * 1024

// Options carries the user-settable overrides that change detection.
type Options struct {
	OverrideBase bool // don't let the detector change base
	HeaderSkip   int  // -1 means "use detected value"
	PreferAlcyon bool // resolve the COFF/Alcyon header collision in Alcyon's favor
}

// Result is the outcome of classifying a file.
type Result struct {
	Kind    Kind
	Base    int32
	Skip    int
	Length  int    // possibly revised file length (ELF rewrites this)
	Data    []byte // possibly rewritten (ELF section-map expansion)
	Guessed bool   // true when the classifier fell back to a guess
}

func be32(b []byte, off int) int32 {
	return int32(uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3]))
}

func be16(b []byte, off int) int {
	return int(b[off])<<8 | int(b[off+1])
}

// Detect classifies data (and, for the .rom fallback, filename) in the
// documented discriminator order, first match wins.
func Detect(data []byte, filename string, opts Options) (Result, error) {
	flen := len(data)

	if flen > 0x2000 && be32(data, 0x404) == 0x802000 {
		return finish(Result{Kind: KindCartROM, Base: 0x802000, Skip: 0x2000, Length: flen, Data: data}, opts)
	}

	if flen > 0x2200 && be32(data, 0x604) == 0x802000 {
		return finish(Result{Kind: KindCartROM512, Base: 0x802000, Skip: 0x2200, Length: flen, Data: data}, opts)
	}

	looksLikeHeader0150 := flen > 1 && data[0] == 0x01 && data[1] == 0x50
	coffMatches := flen > 72 && looksLikeHeader0150
	if coffMatches && !(opts.PreferAlcyon && flen > 0xA8) {
		base := be32(data, 56)
		skip := int(be32(data, 68))
		if flen <= skip {
			return Result{}, fmt.Errorf("%w: coff file length %d <= header skip %d", boarderr.ErrDetection, flen, skip)
		}
		return finish(Result{Kind: KindCOFF, Base: base, Skip: skip, Length: flen, Data: data}, opts)
	}

	if flen > 0x30 && data[0] == 0x7F && data[1] == 'E' && data[2] == 'L' && data[3] == 'F' {
		return detectELF(data, opts)
	}

	if flen > 0x2E && string(data[0x1C:0x20]) == "JAGR" {
		base := be32(data, 0x22)
		return finish(Result{Kind: KindServerExe, Base: base, Skip: 0x2E, Length: flen, Data: data}, opts)
	}

	if flen > 0x24 && data[0] == 0x60 && data[1] == 0x1B {
		skip := 0x24
		base := be32(data, 0x16)
		newLen := int(be32(data, 6)) + int(be32(data, 2)) + skip
		return finish(Result{Kind: KindDRIABS, Base: base, Skip: skip, Length: newLen, Data: data}, opts)
	}

	if flen > 0xA8 && looksLikeHeader0150 {
		skip := 0xA8
		base := be32(data, 0x28)
		newLen := int(be32(data, 0x18)) + int(be32(data, 0x1C)) + skip
		return finish(Result{Kind: KindAlcyonABS, Base: base, Skip: skip, Length: newLen, Data: data}, opts)
	}

	if flen > 0x2000 {
		fill := data[8]
		padded := true
		for i := 9; i < 8192; i++ {
			if data[i] != fill {
				padded = false
				break
			}
		}
		if padded && data[8192] != fill {
			return finish(Result{Kind: KindPaddedHeaderless, Base: 0x802000, Skip: 0x2000, Length: flen, Data: data}, opts)
		}
	}

	if strings.HasSuffix(strings.ToLower(filename), ".rom") {
		skip := 0
		if opts.HeaderSkip >= 0 {
			skip = opts.HeaderSkip
		}
		return Result{Kind: KindRomExtension, Base: 0x802000, Skip: skip, Length: flen, Data: data, Guessed: true}, nil
	}

	return Result{}, fmt.Errorf("%w: no recognized container format", boarderr.ErrDetection)
}

// finish applies the user header-skip override. OverrideBase is handled by
// the caller (UploadDetected), which substitutes the user-supplied base
// after detection runs rather than here.
func finish(r Result, opts Options) (Result, error) {
	if opts.HeaderSkip >= 0 {
		r.Skip = opts.HeaderSkip
	}
	return r, nil
}

// detectELF validates the ELF header (32-bit, big-endian, 68k family),
// then expands the section table into a zeroed ramBufSize image and
// copies progbits sections in. The result's Data is a new slice holding
// the image up to the furthest extent any section reaches (never more
// than ramBufSize bytes); data itself is not modified.
func detectELF(data []byte, opts Options) (Result, error) {
	if data[4] != 0x1 {
		return Result{}, fmt.Errorf("%w: elf is not 32-bit", boarderr.ErrDetection)
	}
	if data[5] != 0x2 {
		return Result{}, fmt.Errorf("%w: elf is not big-endian", boarderr.ErrDetection)
	}
	if be32(data, 0x10) != 0x20004 {
		return Result{}, fmt.Errorf("%w: elf is not big-endian 68k", boarderr.ErrDetection)
	}

	loadBase := be32(data, 0x18)
	if loadBase < 0 {
		return Result{}, fmt.Errorf("%w: elf load base is negative", boarderr.ErrDetection)
	}

	shoff := be32(data, 0x20)
	seclen := be16(data, 0x2E)
	secs := be16(data, 0x30)

	image := make([]byte, ramBufSize)
	flen := 0

	for i := 0; i < secs; i++ {
		secOff := int(shoff) + i*seclen
		if secOff+0x18 > len(data) {
			break
		}
		kind := be32(data, secOff+0x4)
		addr := be32(data, secOff+0xC)
		fptr := be32(data, secOff+0x10)
		slen := be32(data, secOff+0x14)

		if addr == 0 {
			continue // debug section
		}
		if addr < loadBase {
			return Result{}, fmt.Errorf("%w: elf section at 0x%x precedes load base 0x%x", boarderr.ErrDetection, addr, loadBase)
		}
		if end := int(addr-loadBase) + int(slen); end > flen {
			flen = end
		}
		if flen >= ramBufSize {
			return Result{}, fmt.Errorf("%w: elf image exceeds %d bytes", boarderr.ErrDetection, ramBufSize)
		}

		if kind == 1 { // progbits
			dst := int(addr - loadBase)
			src := int(fptr)
			if src >= 0 && src+int(slen) <= len(data) && dst >= 0 && dst+int(slen) <= len(image) {
				copy(image[dst:dst+int(slen)], data[src:src+int(slen)])
			}
		}
	}

	// The loader's C ancestor copies up to ramBufSize bytes back over its
	// (much larger, fixed-size) input buffer regardless of how much of it
	// sections actually touched. We only ever have flen bytes of real
	// content, so bound the copy by that instead of blindly taking the
	// full ramBufSize image — this is the "smaller of the two" fix for
	// the unbounded copy-back.
	n := flen
	if n > len(image) {
		n = len(image)
	}
	out := make([]byte, n)
	copy(out, image[:n])

	base := loadBase

	r := Result{Kind: KindELF, Base: base, Skip: 0, Length: flen, Data: out}
	if opts.HeaderSkip >= 0 {
		r.Skip = opts.HeaderSkip
	}
	return r, nil
}
