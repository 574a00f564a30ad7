// Package cliopts parses the tool's command-line surface into an Options
// bundle, the explicit "Tool value" the rest of the program threads
// through instead of relying on process-wide globals.
package cliopts

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Action names the mutually-exclusive top-level operation the main
// action selector resolves to, in the documented tie-break order.
type Action int

const (
	ActionUpload Action = iota
	ActionFlashUpload
	ActionSerialInfo
	ActionSerialBanner
	ActionReset
	ActionBiosUpgrade
	ActionBootOnly
	ActionDump
)

// Options is the parsed and validated CLI surface.
type Options struct {
	Bank2         bool
	SixMiB        bool
	OnlyBoot      bool
	Console       bool
	Dump          bool
	EraseAll      bool
	Flash         bool
	NoBoot        bool
	OverrideBase  bool
	Quiet         bool
	Reset         bool
	SerialInfo    bool
	BiosUpgrade   bool
	SlowFlash     bool
	Verbose       bool
	OverrideFlash bool
	SerialBanner  bool

	HeaderSkip int // -1 means unset
	Serial     uint16
	HasSerial  bool
	Timeout    int
	USBBus     int
	USBPort    int
	ExternalConsole string

	Base     int64
	HasBase  bool
	Filename string
}

// Parse parses argv (excluding the program name) into Options.
func Parse(argv []string) (Options, error) {
	fs := flag.NewFlagSet("jcp2", flag.ContinueOnError)

	opts := Options{HeaderSkip: -1}

	fs.BoolVar(&opts.Bank2, "2", false, "select bank 2")
	fs.BoolVar(&opts.SixMiB, "6", false, "6 MiB mode")
	fs.BoolVar(&opts.OnlyBoot, "b", false, "boot only, no upload")
	fs.BoolVar(&opts.Console, "c", false, "enter console after upload")
	fs.BoolVar(&opts.Dump, "d", false, "dump flash contents")
	fs.BoolVar(&opts.EraseAll, "e", false, "erase all flash blocks")
	fs.BoolVar(&opts.Flash, "f", false, "flash the upload")
	fs.BoolVar(&opts.NoBoot, "n", false, "upload without booting")
	fs.BoolVar(&opts.OverrideBase, "o", false, "don't let detection override base")
	fs.BoolVar(&opts.Quiet, "q", false, "quiet")
	fs.BoolVar(&opts.Reset, "r", false, "reset the board")
	fs.BoolVar(&opts.SerialInfo, "s", false, "print serial info")
	fs.BoolVar(&opts.BiosUpgrade, "U", false, "upgrade the bios")
	fs.BoolVar(&opts.SlowFlash, "w", false, "slow/word flash")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose")
	fs.BoolVar(&opts.OverrideFlash, "!", false, "override flash protection (undocumented)")
	fs.BoolVar(&opts.SerialBanner, "*", false, "print serial banner")

	headerSkip := fs.Int("h", -1, "header skip override")
	serial := fs.String("serial", "", "select board by BCD serial number")
	timeout := fs.Int("t", 1000, "usb timeout in milliseconds")
	usbBus := fs.Int("ubus", 0, "usb bus selector")
	usbPort := fs.Int("uport", 0, "usb port selector")
	externalConsole := fs.String("x", "", "external console executable")

	if err := fs.Parse(argv); err != nil {
		return Options{}, err
	}

	opts.HeaderSkip = *headerSkip
	opts.Timeout = *timeout
	opts.USBBus = *usbBus
	opts.USBPort = *usbPort
	opts.ExternalConsole = *externalConsole

	if *serial != "" {
		v, err := strconv.ParseUint(*serial, 16, 16)
		if err != nil {
			return Options{}, fmt.Errorf("invalid -serial value %q: %w", *serial, err)
		}
		opts.Serial = uint16(v)
		opts.HasSerial = true
	}

	for _, arg := range fs.Args() {
		if v, ok := parseHexArg(arg); ok {
			opts.Base = v
			opts.HasBase = true
			continue
		}
		opts.Filename = arg
	}

	return opts, nil
}

// parseHexArg recognizes a bare $HEX or 0xHEX positional argument as a
// base-address override.
func parseHexArg(arg string) (int64, bool) {
	s := arg
	switch {
	case strings.HasPrefix(s, "$"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	default:
		return 0, false
	}
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SelectAction resolves the main action selector: mutually exclusive
// flags, ties broken top-down in the documented order.
func (o Options) SelectAction() Action {
	switch {
	case o.SerialInfo:
		return ActionSerialInfo
	case o.SerialBanner:
		return ActionSerialBanner
	case o.Reset:
		return ActionReset
	case o.BiosUpgrade:
		return ActionBiosUpgrade
	case o.OnlyBoot:
		return ActionBootOnly
	case o.Dump:
		return ActionDump
	case o.Flash:
		return ActionFlashUpload
	default:
		return ActionUpload
	}
}
