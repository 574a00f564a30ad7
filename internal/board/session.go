package board

import (
	"context"
	"fmt"
	"time"

	"jcp2/internal/boarderr"
	"jcp2/internal/jlog"
	"jcp2/internal/transport"
)

// reattachDelay is how long a USB-error retry waits before re-acquiring
// the device handle.
const reattachDelay = 1 * time.Second

// SendOptions carries the bank/boot-mode flags that affect how a block or
// payload is addressed and whether the receiver is expected to boot it.
type SendOptions struct {
	NoBoot      bool // suppress boot; final entry becomes a sentinel
	FlashActive bool // a flasher stub currently owns the board
	OnlyBoot    bool // payload is a boot-only request, not a fresh upload
	Bank2       bool
	SixMiB      bool
	SkipWait    bool // don't poll for boot acknowledgement after writing
	Override    bool // bypass the protected-address-range refusal
}

// Session owns next_window and a control-transfer handle, and implements
// the ping-pong transport state machine: block writes, buffer handshakes,
// reset/reconnect, and chunked payload sends.
type Session struct {
	ct         transport.ControlTransfer
	nextWindow Window
	log        *jlog.Logger
}

// NewSession wraps ct in a fresh Session with next_window starting at W0.
func NewSession(ct transport.ControlTransfer, log *jlog.Logger) *Session {
	return &Session{ct: ct, nextWindow: W0, log: log}
}

// NextWindow reports the window the next write_block call will target.
func (s *Session) NextWindow() Window { return s.nextWindow }

// ResetWindow forces next_window back to W0, used after a flash erase
// cycle completes so the following upload starts from a known state.
func (s *Session) ResetWindow() { s.nextWindow = W0 }

// Close releases the underlying control-transfer handle.
func (s *Session) Close() error { return s.ct.Close() }

func (s *Session) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	select {
	case <-time.After(reattachDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if reopenErr := s.ct.Reopen(ctx); reopenErr != nil {
		return fmt.Errorf("%w: reattach failed after %v: %v", boarderr.ErrUSB, err, reopenErr)
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %v", boarderr.ErrUSB, err)
	}
	return nil
}

func (s *Session) readLength(ctx context.Context, w Window) (LengthState, error) {
	var state LengthState
	err := s.withRetry(ctx, func() error {
		buf, err := s.ct.Read(ctx, uint16(w)+OffsetLength(), 2)
		if err != nil {
			return err
		}
		state = LengthOf(buf)
		return nil
	})
	return state, err
}

func (s *Session) writeLength(ctx context.Context, w Window, v LengthState) error {
	data := []byte{byte(v), byte(v >> 8)}
	return s.withRetry(ctx, func() error {
		return s.ct.Write(ctx, uint16(w)+OffsetLength(), data)
	})
}

// LockBothBuffers writes LengthLocked into both windows, used before a
// reset so the receiver observes "no work" on reboot.
func (s *Session) LockBothBuffers(ctx context.Context) error {
	if err := s.writeLength(ctx, W0, LengthLocked); err != nil {
		return err
	}
	return s.writeLength(ctx, W1, LengthLocked)
}

// TestIfBothLocked performs a single non-blocking check of both windows.
func (s *Session) TestIfBothLocked(ctx context.Context) (bool, error) {
	a, err := s.readLength(ctx, W0)
	if err != nil {
		return false, err
	}
	b, err := s.readLength(ctx, W1)
	if err != nil {
		return false, err
	}
	return a == LengthLocked && b == LengthLocked, nil
}

func (s *Session) waitForBoth(ctx context.Context, want LengthState) error {
	for _, w := range [2]Window{W0, W1} {
		for {
			v, err := s.readLength(ctx, w)
			if err != nil {
				return err
			}
			if v == want {
				break
			}
			select {
			case <-time.After(PollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// WaitForBothBuffersFree polls each window until its length field reads
// LengthFree, sleeping PollInterval between attempts.
func (s *Session) WaitForBothBuffersFree(ctx context.Context) error {
	return s.waitForBoth(ctx, LengthFree)
}

// WaitForBothBuffersZero polls each window until its length field reads
// LengthLocked, used after dispatching a flash erase.
func (s *Session) WaitForBothBuffersZero(ctx context.Context) error {
	return s.waitForBoth(ctx, LengthLocked)
}

// resetCommand is the vendor control payload that triggers a board reset.
var resetCommand = [10]byte{0xB6, 0xC3, 0x04, 0x00, 0x00, 0x28, 0xC0, 0x02, 0x00, 0x00}

const resetOffset = 0x304C

// Reset locks both buffers, issues the two-part reset control write with
// a 50ms gap, then closes the device handle.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.LockBothBuffers(ctx); err != nil {
		return err
	}

	cmd := resetCommand
	if err := s.withRetry(ctx, func() error {
		return s.ct.Write(ctx, resetOffset, cmd[:])
	}); err != nil {
		return err
	}

	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	cmd[7] = 0x00
	if err := s.withRetry(ctx, func() error {
		return s.ct.Write(ctx, resetOffset, cmd[:])
	}); err != nil {
		return err
	}

	return s.ct.Close()
}

// ResetAndReconnect resets the board and waits for it to reappear. When
// force is false it first waits for both buffers to go free, letting any
// in-flight transfer settle before resetting.
func (s *Session) ResetAndReconnect(ctx context.Context, force bool, reappear func(context.Context) error) error {
	if !force {
		if err := s.WaitForBothBuffersFree(ctx); err != nil {
			return err
		}
	}
	if err := s.Reset(ctx); err != nil {
		return err
	}

	select {
	case <-time.After(ResetBootDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if reappear != nil {
		if err := reappear(ctx); err != nil {
			return err
		}
	} else {
		for s.ct.Reopen(ctx) != nil {
			select {
			case <-time.After(PollInterval):
			case <-ctx.Done():
				return fmt.Errorf("%w: board did not reappear after reset: %v", boarderr.ErrDeviceNotFound, ctx.Err())
			}
		}
	}

	if err := s.WaitForBothBuffersFree(ctx); err != nil {
		return err
	}
	s.nextWindow = W0
	return nil
}

// RawRead performs a raw control-transfer read at an arbitrary offset,
// for the handful of callers (serial info, BIOS version probe) that need
// to peek outside the normal block protocol.
func (s *Session) RawRead(ctx context.Context, offset uint16, n int) ([]byte, error) {
	var buf []byte
	err := s.withRetry(ctx, func() error {
		b, err := s.ct.Read(ctx, offset, n)
		if err != nil {
			return err
		}
		buf = b
		return nil
	})
	return buf, err
}

// AnnounceReady writes LengthFree into both windows, the console loop's
// opening handshake telling the receiver the PC is ready to converse.
func (s *Session) AnnounceReady(ctx context.Context) error {
	if err := s.writeLength(ctx, W0, LengthFree); err != nil {
		return err
	}
	return s.writeLength(ctx, W1, LengthFree)
}

// ReadNextBlock flips next_window, waits for the receiver to post a
// block there, reads and deswaps it, and immediately acknowledges by
// writing LengthFree back — the console loop's per-iteration receive.
func (s *Session) ReadNextBlock(ctx context.Context) (DecodedBlock, error) {
	s.nextWindow = s.nextWindow.Other()
	w := s.nextWindow

	for {
		v, err := s.readLength(ctx, w)
		if err != nil {
			return DecodedBlock{}, err
		}
		if v != LengthFree {
			break
		}
		select {
		case <-time.After(PollInterval):
		case <-ctx.Done():
			return DecodedBlock{}, ctx.Err()
		}
	}

	var raw [WindowSize]byte
	err := s.withRetry(ctx, func() error {
		buf, err := s.ct.Read(ctx, uint16(w), WindowSize)
		if err != nil {
			return err
		}
		copy(raw[:], buf)
		return nil
	})
	if err != nil {
		return DecodedBlock{}, err
	}

	if err := s.writeLength(ctx, w, LengthFree); err != nil {
		return DecodedBlock{}, err
	}

	return DecodeReceivedBlock(raw), nil
}

// isRefused reports whether base falls in a protected address range that
// write_block must refuse without sending, per the bank/flash-state rules
// governing block-write destinations. DummyBase is always accepted.
func isRefused(base int32, opts SendOptions) bool {
	if base == DummyBase {
		return false
	}
	if opts.Override {
		return false
	}
	if base >= 0x800000 && base <= 0x801FFF {
		if !(opts.SixMiB && !opts.Bank2) {
			return true
		}
	}
	if base >= 0x800000 {
		return !opts.FlashActive
	}
	if base >= 0x200000 {
		return !opts.FlashActive
	}
	if base <= 0x2800 {
		return true
	}
	return false
}

// WriteBlock is the atomic unit of the ping-pong protocol: it refuses
// writes to protected regions, flips next_window, performs the pre-write
// handshake poll, writes the block, and (unless skipped) waits for the
// receiver's boot acknowledgement.
func (s *Session) WriteBlock(ctx context.Context, payload []byte, base, entry int32, length int, opts SendOptions) error {
	if isRefused(base, opts) {
		s.log.Verbosef("refusing write to protected address 0x%x", base)
		return nil
	}

	preFlip := s.nextWindow
	target := preFlip.Other()

	block, err := EncodeBlock(payload, base, entry, target, length)
	if err != nil {
		return err
	}
	s.nextWindow = target

	if err := s.pollHandshake(ctx, target); err != nil {
		return err
	}

	if err := s.withRetry(ctx, func() error {
		return s.ct.Write(ctx, uint16(target), block[:])
	}); err != nil {
		return err
	}

	if opts.SkipWait || entry == NoBoot || entry == FlashReturn {
		return nil
	}
	return s.pollBootAck(ctx, target)
}

// pollHandshake waits for window w to read back exactly LengthFree before a
// write may target it. Any other reserved 0xFxxx value is a protocol
// mismatch and is fatal immediately; anything else (including LengthLocked
// and ordinary lengths, meaning the receiver hasn't consumed it yet) just
// keeps the poll going, bounded by the deadline.
func (s *Session) pollHandshake(ctx context.Context, w Window) error {
	deadline := time.Now().Add(HandshakeTimeout)
	for {
		v, err := s.readLength(ctx, w)
		if err == nil {
			if v == LengthFree {
				return nil
			}
			if v.IsReserved() {
				return fmt.Errorf("%w: window 0x%x reports 0x%04x", boarderr.ErrProtocolVersion, w, uint16(v))
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: window 0x%x", boarderr.ErrHandshakeTimeout, w)
		}
		select {
		case <-time.After(PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) pollBootAck(ctx context.Context, w Window) error {
	for {
		v, err := s.readLength(ctx, w)
		if err != nil {
			return err
		}
		switch v {
		case LengthLocked:
			return nil
		case LengthUnauthorized:
			return fmt.Errorf("%w: a different rom must be flashed first", boarderr.ErrUnauthorized)
		}
		select {
		case <-time.After(PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SendReply writes an RPC reply payload to the window the next write
// would target, then waits for the receiver to consume it (length goes
// to LengthLocked) before restoring the handshake value to LengthFree —
// the console loop's reply convention, distinct from a booting upload.
func (s *Session) SendReply(ctx context.Context, payload []byte) error {
	if err := s.WriteBlock(ctx, payload, DummyBase, NoBoot, len(payload), SendOptions{SkipWait: true}); err != nil {
		return err
	}
	w := s.nextWindow
	for {
		v, err := s.readLength(ctx, w)
		if err != nil {
			return err
		}
		if v == LengthLocked {
			break
		}
		select {
		case <-time.After(PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.writeLength(ctx, w, LengthFree)
}

// modifiedEntry applies the bank-2 and 6MiB address modifiers to an entry
// word that is actually going to boot the receiver.
func modifiedEntry(entry int32, opts SendOptions) int32 {
	if !opts.FlashActive && !opts.OnlyBoot {
		return entry
	}
	if opts.Bank2 {
		entry |= 0x10000000
	}
	if opts.SixMiB {
		entry |= 0x70000000
	}
	return entry
}

// SendPayload splits data into PayloadSize chunks and writes each one in
// turn; only the final chunk carries the real entry address (subject to
// no-boot substitution and bank modifiers), all others carry NoBoot. If
// the transfer ends in no-boot mode with next_window != W0, a 4-byte
// dummy block is sent to align the next session's starting window.
func (s *Session) SendPayload(ctx context.Context, data []byte, base, entry int32, opts SendOptions) error {
	total := len(data)
	chunks := 1
	if total > 0 {
		chunks = (total + PayloadSize - 1) / PayloadSize
	}

	finalEntry := entry
	if opts.NoBoot {
		if opts.FlashActive {
			finalEntry = FlashReturn
		} else {
			finalEntry = NoBoot
		}
	} else {
		finalEntry = modifiedEntry(entry, opts)
	}

	for i := 0; i < chunks; i++ {
		start := i * PayloadSize
		end := start + PayloadSize
		if end > total {
			end = total
		}
		chunk := data[start:end]
		curBase := base + int32(start)
		isLast := i == chunks-1

		curEntry := int32(NoBoot)
		if isLast {
			curEntry = finalEntry
		}

		if err := s.WriteBlock(ctx, chunk, curBase, curEntry, len(chunk), opts); err != nil {
			return err
		}
	}

	if opts.NoBoot && s.nextWindow != W0 {
		dummyOpts := opts
		dummyOpts.SkipWait = true
		if err := s.WriteBlock(ctx, make([]byte, 4), DummyBase, NoBoot, 4, dummyOpts); err != nil {
			return err
		}
	}
	return nil
}
