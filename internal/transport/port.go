// Package transport defines the abstract control-transfer primitive the
// board protocol is built on, and a gousb-backed implementation of it.
//
// This is the only package that drives USB transfers. Everything above it
// (internal/board, internal/ops, internal/console) moves data through a
// ControlTransfer; the one other use of gousb is internal/board's locator,
// which takes its gousb.ID type for the vendor/product constants. The
// protocol state machine can therefore be tested without a real board
// attached.
package transport

import "context"

// ControlTransfer is the abstract bidirectional control-transfer port the
// board protocol runs over: read(window_offset, len) and
// write(window_offset, bytes). Implementations hold a stateful device
// handle; Reopen lets a caller recover from a handle gone bad.
type ControlTransfer interface {
	// Read performs a vendor control-IN transfer of length n at offset.
	Read(ctx context.Context, offset uint16, n int) ([]byte, error)

	// Write performs a vendor control-OUT transfer of data at offset.
	Write(ctx context.Context, offset uint16, data []byte) error

	// PushStub performs the raw stub/data-push control-OUT transfer used
	// to install the turbo-upload stub and similar first-boot payloads.
	PushStub(ctx context.Context, offset uint16, data []byte) error

	// Reopen closes the current device handle (if any) and re-acquires a
	// fresh one, for the locator's reattach-on-USB-error policy.
	Reopen(ctx context.Context) error

	// Close releases the device handle and any backing USB context.
	Close() error
}

// Request/response shapes for the three vendor control transfers the
// board exposes: window reads, block writes, and stub/data pushes.
const (
	bmRequestTypeRead  = 0xC0
	bmRequestTypeWrite = 0x40
	bRequestRead       = 0xFF
	bRequestWrite      = 0xFE
	bRequestPushStub   = 0xFF
	wValueWrite        = 4080
	wValueRead         = 4
)
