package ops

import (
	"context"

	"jcp2/internal/board"
	"jcp2/internal/fileformat"
)

// UploadRequest carries a detected file's load parameters alongside the
// boot-mode flags that affect addressing.
type UploadRequest struct {
	Data  []byte
	Base  int32
	Entry int32
	Opts  board.SendOptions
}

// Upload sends data to the board via the transport's chunked payload
// path, reporting byte progress if a progress renderer is configured.
func (t *Toolset) Upload(ctx context.Context, req UploadRequest) error {
	ctx = bg(ctx)
	bar := t.newBar("upload", int64(len(req.Data)))
	defer done(bar)

	if err := t.Session.SendPayload(ctx, req.Data, req.Base, req.Entry, req.Opts); err != nil {
		return err
	}
	incr(bar, len(req.Data))
	return nil
}

// sixMiBBankSplit is the file offset at which the second pass of a 6 MiB
// upload begins, matching the cartridge's bank 1 base address.
const sixMiBBankSplit = 0x800000

// UploadSixMiB drives the three-pass sequence 6 MiB mode requires: bank 0
// with no-boot, bank 1 (from file offset 0x800000) with no-boot, then a
// boot-only request at entry base|0x70000000.
func (t *Toolset) UploadSixMiB(ctx context.Context, req UploadRequest) error {
	ctx = bg(ctx)
	bar := t.newBar("upload", int64(len(req.Data)))
	defer done(bar)

	bank0Opts := req.Opts
	bank0Opts.NoBoot = true
	bank0Opts.SixMiB = false

	bank0 := req.Data
	bank1 := []byte(nil)
	if len(req.Data) > sixMiBBankSplit {
		bank0 = req.Data[:sixMiBBankSplit]
		bank1 = req.Data[sixMiBBankSplit:]
	}

	if err := t.Session.SendPayload(ctx, bank0, req.Base, req.Entry, bank0Opts); err != nil {
		return err
	}
	incr(bar, len(bank0))

	if len(bank1) > 0 {
		bank1Opts := req.Opts
		bank1Opts.NoBoot = true
		bank1Opts.SixMiB = true
		if err := t.Session.SendPayload(ctx, bank1, sixMiBBankSplit, req.Entry, bank1Opts); err != nil {
			return err
		}
		incr(bar, len(bank1))
	}

	bootOpts := req.Opts
	bootOpts.NoBoot = false
	bootOpts.OnlyBoot = true
	bootOpts.SixMiB = true
	return t.Session.SendPayload(ctx, nil, req.Base, req.Entry, bootOpts)
}

// UploadDetected runs file detection and builds the upload request from
// the result, applying the detected (or user-overridden) base/skip. It
// sends nothing; the caller passes the request to Upload or UploadSixMiB.
func UploadDetected(data []byte, filename string, userBase int32, detOpts fileformat.Options, sendOpts board.SendOptions) (UploadRequest, fileformat.Result, error) {
	result, err := fileformat.Detect(data, filename, detOpts)
	if err != nil {
		return UploadRequest{}, fileformat.Result{}, err
	}

	base := result.Base
	if detOpts.OverrideBase {
		base = userBase
	}

	payload := result.Data[result.Skip:]
	entry := base

	return UploadRequest{Data: payload, Base: base, Entry: entry, Opts: sendOpts}, result, nil
}
