package ops

import (
	"context"

	"jcp2/internal/board"
	"jcp2/internal/stub"
)

// FlashOptions selects the erase-block count and bank/speed bits baked
// into the flasher stub's parameter word.
type FlashOptions struct {
	DataLen   int
	EraseAll  bool
	SlowFlash bool
	Bank2     bool
}

// eraseBlockCount chooses the erase-block count from the data length,
// clamped to the 1..62 range the flasher stub accepts.
func eraseBlockCount(opts FlashOptions) uint32 {
	n := uint32(32)
	if opts.DataLen > 2*1024*1024 {
		n = 62
	}
	if opts.EraseAll {
		n = 62
	}
	if n < 1 {
		n = 1
	}
	if n > 62 {
		n = 62
	}
	return n
}

func flashParamWord(opts FlashOptions) uint32 {
	param := eraseBlockCount(opts)
	if opts.Bank2 {
		param |= 0x40000000
	}
	if opts.SlowFlash {
		param |= 0x80000000
	}
	return param
}

// Flash arms the board for a flash write: it patches and uploads the
// flasher stub, then waits for the erase cycle to start and finish.
func (t *Toolset) Flash(ctx context.Context, opts FlashOptions) error {
	ctx = bg(ctx)

	body, err := stub.Flasher.PatchFlashParam(flashParamWord(opts))
	if err != nil {
		return err
	}

	bar := t.newBar("flash:erase", 1)
	defer done(bar)

	sendOpts := board.SendOptions{FlashActive: true, OnlyBoot: true}
	if err := t.Session.SendPayload(ctx, body, stub.Flasher.Base, 0x4100, sendOpts); err != nil {
		return err
	}

	if err := t.Session.WaitForBothBuffersZero(ctx); err != nil {
		return err
	}
	if err := t.Session.WaitForBothBuffersFree(ctx); err != nil {
		return err
	}
	t.Session.ResetWindow()
	incr(bar, 1)

	return nil
}
