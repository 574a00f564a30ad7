package ops

import (
	"context"
	"os"

	"jcp2/internal/board"
	"jcp2/internal/console"
	"jcp2/internal/stub"
)

// DumpOptions configures a flash-readback dump.
type DumpOptions struct {
	OutputPath string
	Bank2      bool
}

// Dump writes the dump file header, uploads the dumper stub, and enters
// the console loop to receive the flash contents over the RPC channel.
func (t *Toolset) Dump(ctx context.Context, opts DumpOptions, proto console.Protocol) error {
	ctx = bg(ctx)

	f, err := os.Create(opts.OutputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writePadded(f, stub.UniversalHeader, stub.UniversalHeaderPad); err != nil {
		return err
	}
	if err := writePadded(f, stub.StandardValues, stub.StandardValuesPad); err != nil {
		return err
	}

	body := stub.Dumper.WithBank2(opts.Bank2)

	sendOpts := board.SendOptions{OnlyBoot: true}
	if err := t.Session.SendPayload(ctx, body, stub.Dumper.Base, stub.Dumper.Entry, sendOpts); err != nil {
		return err
	}

	loop := console.NewLoop(t.Session, proto, t.Log)
	return loop.Run(ctx)
}

// writePadded writes data then pads the file with 0xFF up to the given
// absolute offset from the start of the file.
func writePadded(f *os.File, data []byte, upTo int) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	pos, err := f.Seek(0, os.SEEK_CUR)
	if err != nil {
		return err
	}
	if int(pos) >= upTo {
		return nil
	}
	pad := make([]byte, upTo-int(pos))
	for i := range pad {
		pad[i] = 0xFF
	}
	_, err = f.Write(pad)
	return err
}
