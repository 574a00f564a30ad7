package board

import (
	"context"
	"fmt"

	"jcp2/internal/jlog"
	"jcp2/internal/transport"

	"github.com/google/gousb"
)

// VendorID and ProductID are the board's fixed USB identifiers.
const (
	VendorID  gousb.ID = 0x04B4
	ProductID gousb.ID = 0x7200
)

// LocateOptions configures device discovery.
type LocateOptions struct {
	Bus, Port int    // 0 means "any"
	Serial    uint16 // 0 means "don't filter by serial"
	HasSerial bool
	Timeout   int // USB control-transfer timeout in milliseconds; Locate does not pass it to the transport

	// TurboStub, when non-nil, is pushed to the board on first open. It
	// is an opaque byte blob whose load address is fixed by firmware
	// convention; see internal/stub.
	TurboStub       []byte
	TurboStubOffset uint16
}

// Locate opens the board matching opts, optionally installs the
// turbo-upload stub, and optionally filters by serial number read from W1.
func Locate(ctx context.Context, opts LocateOptions, log *jlog.Logger) (*Session, error) {
	sel := transport.Selector{VendorID: VendorID, ProductID: ProductID, Bus: opts.Bus, Port: opts.Port}
	ct, err := transport.OpenUSB(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("locate board: %w", err)
	}

	s := NewSession(ct, log)

	if len(opts.TurboStub) > 0 {
		if err := ct.PushStub(ctx, opts.TurboStubOffset, opts.TurboStub); err != nil {
			s.Close()
			return nil, fmt.Errorf("install turbo-upload stub: %w", err)
		}
	}

	if opts.HasSerial {
		matched, err := matchSerial(ctx, s, opts.Serial)
		if err != nil {
			s.Close()
			return nil, err
		}
		if !matched {
			s.Close()
			return nil, fmt.Errorf("no board matches serial %04x", opts.Serial)
		}
	}

	return s, nil
}

// matchSerial reads the 12-byte serial-info structure from W1 and compares
// bytes 8-9 (little-endian BCD) against want.
func matchSerial(ctx context.Context, s *Session, want uint16) (bool, error) {
	buf, err := s.ct.Read(ctx, uint16(W1), 12)
	if err != nil {
		return false, fmt.Errorf("read serial info: %w", err)
	}
	if len(buf) < 10 {
		return false, nil
	}
	got := uint16(buf[8]) | uint16(buf[9])<<8
	return got == want, nil
}
