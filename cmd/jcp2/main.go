// Command jcp2 talks to a USB-attached cartridge programmer: it loads a
// user file, classifies its container format, and flashes, dumps,
// uploads, or otherwise drives the board through the ping-pong block
// transfer protocol.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vbauerster/mpb/v8"

	"jcp2/internal/board"
	"jcp2/internal/cliopts"
	"jcp2/internal/console"
	"jcp2/internal/fileformat"
	"jcp2/internal/jlog"
	"jcp2/internal/ops"
	"jcp2/internal/stub"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "jcp2:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	opts, err := cliopts.Parse(argv)
	if err != nil {
		return err
	}

	log := jlog.New()
	log.Verbose = opts.Verbose
	log.Quiet = opts.Quiet

	ctx := context.Background()

	session, err := board.Locate(ctx, board.LocateOptions{
		Bus:             opts.USBBus,
		Port:            opts.USBPort,
		Serial:          opts.Serial,
		HasSerial:       opts.HasSerial,
		Timeout:         opts.Timeout,
		TurboStub:       stub.TurboUpload.Bytes(),
		TurboStubOffset: stub.TurboUploadOffset,
	}, log)
	if err != nil {
		return err
	}
	defer session.Close()

	var progress *mpb.Progress
	if !opts.Quiet {
		progress = mpb.New()
	}
	tools := &ops.Toolset{Session: session, Log: log, Progress: progress}

	var proto console.Protocol = console.NewRichProtocol()

	switch opts.SelectAction() {
	case cliopts.ActionSerialInfo:
		info, ok, err := tools.SerialInfoQuick(ctx, proto)
		if err != nil {
			return err
		}
		if ok {
			fmt.Println(info.String())
		}
		return nil

	case cliopts.ActionSerialBanner:
		info, ok, err := tools.SerialInfoQuick(ctx, proto)
		if err != nil {
			return err
		}
		if ok {
			fmt.Print(ops.SerialBanner(info))
		}
		return nil

	case cliopts.ActionReset:
		return tools.Reset(ctx, true)

	case cliopts.ActionBiosUpgrade:
		return tools.BiosUpgrade(ctx, false)

	case cliopts.ActionBootOnly:
		return bootOnly(ctx, tools, opts)

	case cliopts.ActionDump:
		if err := tools.Dump(ctx, ops.DumpOptions{OutputPath: opts.Filename, Bank2: opts.Bank2}, proto); err != nil {
			return err
		}
		return nil

	default:
		return uploadOrFlash(ctx, tools, opts, proto)
	}
}

// defaultBootBase is the base address used when -b is given without a
// positional address argument, matching the loader's own default.
const defaultBootBase = 0x4000

// bootOnly issues a zero-length boot request at the already-resident
// content's base, skipping the board reset and file load entirely.
func bootOnly(ctx context.Context, tools *ops.Toolset, opts cliopts.Options) error {
	base := int32(defaultBootBase)
	if opts.HasBase {
		base = int32(opts.Base)
	}

	sendOpts := board.SendOptions{
		OnlyBoot: true,
		Bank2:    opts.Bank2,
		SixMiB:   opts.SixMiB,
		Override: opts.OverrideFlash,
	}
	return tools.Session.SendPayload(ctx, nil, base, base, sendOpts)
}

func uploadOrFlash(ctx context.Context, tools *ops.Toolset, opts cliopts.Options, proto console.Protocol) error {
	if opts.Filename == "" {
		return fmt.Errorf("no input file given")
	}

	data, err := os.ReadFile(opts.Filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.Filename, err)
	}

	detOpts := fileformat.Options{
		OverrideBase: opts.OverrideBase,
		HeaderSkip:   opts.HeaderSkip,
	}

	sendOpts := board.SendOptions{
		NoBoot:      opts.NoBoot,
		FlashActive: opts.Flash,
		Bank2:       opts.Bank2,
		SixMiB:      opts.SixMiB,
		Override:    opts.OverrideFlash,
	}

	req, _, err := ops.UploadDetected(data, opts.Filename, int32(opts.Base), detOpts, sendOpts)
	if err != nil {
		return err
	}

	if opts.Flash {
		if err := tools.Flash(ctx, ops.FlashOptions{
			DataLen:   len(req.Data),
			EraseAll:  opts.EraseAll,
			SlowFlash: opts.SlowFlash,
			Bank2:     opts.Bank2,
		}); err != nil {
			return err
		}
	}

	if opts.SixMiB {
		if err := tools.UploadSixMiB(ctx, req); err != nil {
			return err
		}
	} else if err := tools.Upload(ctx, req); err != nil {
		return err
	}

	if opts.Console {
		loop := console.NewLoop(tools.Session, proto, tools.Log)
		loop.ExternalShell = opts.ExternalConsole
		return loop.Run(ctx)
	}
	return nil
}
