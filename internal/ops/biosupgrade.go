package ops

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"jcp2/internal/board"
	"jcp2/internal/stub"
)

// BiosVersionProbeDelay is how long the version-reader stub gets to run
// before its reply is read back, with no handshake involved.
const BiosVersionProbeDelay = 500 * time.Millisecond

// BiosUpgrade discovers the board's current BIOS revision, and if it is
// behind the latest known image (or force is set), resets, reconnects,
// and uploads the appropriate BIOS blob.
func (t *Toolset) BiosUpgrade(ctx context.Context, force bool) error {
	ctx = bg(ctx)

	sendOpts := board.SendOptions{OnlyBoot: true}
	if err := t.Session.SendPayload(ctx, stub.SerialReader.Bytes(), stub.SerialReader.Base, stub.SerialReader.Entry, sendOpts); err != nil {
		return err
	}

	select {
	case <-time.After(BiosVersionProbeDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	buf, err := t.Session.RawRead(ctx, uint16(board.W1), 12)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(buf, stub.SerialMagic) {
		return fmt.Errorf("could not determine current bios version")
	}

	rev, upToDate := stub.SelectRevision(buf[4], buf[5], buf[6])
	if upToDate && !force {
		t.Log.Status("bios already at version %02x.%02x.%02x", buf[4], buf[5], buf[6])
		return nil
	}

	if err := t.Session.ResetAndReconnect(ctx, true, nil); err != nil {
		return err
	}

	return t.Session.SendPayload(ctx, rev.Image.Bytes(), rev.Image.Base, rev.Image.Entry, board.SendOptions{OnlyBoot: true})
}
