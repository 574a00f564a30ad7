package transport

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// Selector narrows which attached board the locator should open: a fixed
// vendor/product id pair plus an optional bus/port to disambiguate
// multiple attached boards.
type Selector struct {
	VendorID  gousb.ID
	ProductID gousb.ID
	Bus       int // 0 means "any"
	Port      int // 0 means "any"
}

// USBControlTransfer implements ControlTransfer over a gousb device handle.
type USBControlTransfer struct {
	ctx      *gousb.Context
	dev      *gousb.Device
	selector Selector
	timeout  int // not set by OpenUSB and not applied to dev; transfers use dev's default ControlTimeout
}

// OpenUSB opens the first device matching sel. It owns the returned
// *gousb.Context and closes it when Close is called.
func OpenUSB(ctx context.Context, sel Selector) (*USBControlTransfer, error) {
	t := &USBControlTransfer{selector: sel}
	if err := t.Reopen(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Reopen implements ControlTransfer.
func (t *USBControlTransfer) Reopen(ctx context.Context) error {
	t.closeDevice()

	if t.ctx == nil {
		t.ctx = gousb.NewContext()
	}

	devs, err := t.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != t.selector.VendorID || desc.Product != t.selector.ProductID {
			return false
		}
		if t.selector.Bus != 0 && desc.Bus != t.selector.Bus {
			return false
		}
		if t.selector.Port != 0 && desc.Port != t.selector.Port {
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("scan usb devices: %w", err)
	}
	if len(devs) == 0 {
		return fmt.Errorf("no board matching vid:0x%04x pid:0x%04x", t.selector.VendorID, t.selector.ProductID)
	}
	// Close any extra matches; we only ever drive one board.
	for _, extra := range devs[1:] {
		extra.Close()
	}

	t.dev = devs[0]
	return nil
}

func (t *USBControlTransfer) closeDevice() {
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
}

// Close implements ControlTransfer.
func (t *USBControlTransfer) Close() error {
	t.closeDevice()
	if t.ctx != nil {
		err := t.ctx.Close()
		t.ctx = nil
		return err
	}
	return nil
}

// Read implements ControlTransfer: bmRequestType=0xC0, bRequest=0xFF,
// wValue=4, wIndex=offset.
func (t *USBControlTransfer) Read(ctx context.Context, offset uint16, n int) ([]byte, error) {
	if t.dev == nil {
		return nil, fmt.Errorf("usb device not open")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	got, err := t.dev.Control(bmRequestTypeRead, bRequestRead, wValueRead, offset, buf)
	if err != nil {
		return nil, fmt.Errorf("control read at 0x%04x: %w", offset, err)
	}
	if got != n {
		return nil, fmt.Errorf("control read at 0x%04x: got %d bytes, want %d", offset, got, n)
	}
	return buf, nil
}

// Write implements ControlTransfer: bmRequestType=0x40, bRequest=0xFE,
// wValue=4080, wIndex=offset.
func (t *USBControlTransfer) Write(ctx context.Context, offset uint16, data []byte) error {
	if t.dev == nil {
		return fmt.Errorf("usb device not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := t.dev.Control(bmRequestTypeWrite, bRequestWrite, wValueWrite, offset, data)
	if err != nil {
		return fmt.Errorf("control write at 0x%04x: %w", offset, err)
	}
	if n != len(data) {
		return fmt.Errorf("control write at 0x%04x: sent %d bytes, want %d", offset, n, len(data))
	}
	return nil
}

// PushStub implements ControlTransfer: bmRequestType=0x40, bRequest=0xFF,
// wValue=len(data), wIndex=offset.
func (t *USBControlTransfer) PushStub(ctx context.Context, offset uint16, data []byte) error {
	if t.dev == nil {
		return fmt.Errorf("usb device not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := t.dev.Control(bmRequestTypeWrite, bRequestPushStub, uint16(len(data)), offset, data)
	if err != nil {
		return fmt.Errorf("stub push at 0x%04x: %w", offset, err)
	}
	if n != len(data) {
		return fmt.Errorf("stub push at 0x%04x: sent %d bytes, want %d", offset, n, len(data))
	}
	return nil
}
