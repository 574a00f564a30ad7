package cliopts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBoolFlags(t *testing.T) {
	opts, err := Parse([]string{"-2", "-6", "-f", "-v", "cart.rom"})
	assert.NoError(t, err)
	assert.True(t, opts.Bank2)
	assert.True(t, opts.SixMiB)
	assert.True(t, opts.Flash)
	assert.True(t, opts.Verbose)
	assert.Equal(t, "cart.rom", opts.Filename)
}

func TestParseHexPositionalSetsBase(t *testing.T) {
	opts, err := Parse([]string{"$802000", "game.rom"})
	assert.NoError(t, err)
	assert.True(t, opts.HasBase)
	assert.Equal(t, int64(0x802000), opts.Base)
	assert.Equal(t, "game.rom", opts.Filename)
}

func TestParseHexPositional0xPrefix(t *testing.T) {
	opts, err := Parse([]string{"0x1000"})
	assert.NoError(t, err)
	assert.True(t, opts.HasBase)
	assert.Equal(t, int64(0x1000), opts.Base)
}

func TestParseSerialFlag(t *testing.T) {
	opts, err := Parse([]string{"-serial=1A2B"})
	assert.NoError(t, err)
	assert.True(t, opts.HasSerial)
	assert.Equal(t, uint16(0x1A2B), opts.Serial)
}

func TestParseInvalidSerialIsError(t *testing.T) {
	_, err := Parse([]string{"-serial=zzzz"})
	assert.Error(t, err)
}

func TestParseHeaderSkipDefaultsUnset(t *testing.T) {
	opts, err := Parse([]string{"a.rom"})
	assert.NoError(t, err)
	assert.Equal(t, -1, opts.HeaderSkip)
}

func TestParseHeaderSkipOverride(t *testing.T) {
	opts, err := Parse([]string{"-h=512", "a.rom"})
	assert.NoError(t, err)
	assert.Equal(t, 512, opts.HeaderSkip)
}

func TestSelectActionTieBreakOrder(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want Action
	}{
		{"serial info wins over everything", Options{SerialInfo: true, Reset: true, Flash: true}, ActionSerialInfo},
		{"serial banner wins over reset", Options{SerialBanner: true, Reset: true}, ActionSerialBanner},
		{"reset wins over bios upgrade", Options{Reset: true, BiosUpgrade: true}, ActionReset},
		{"bios upgrade wins over boot only", Options{BiosUpgrade: true, OnlyBoot: true}, ActionBiosUpgrade},
		{"boot only wins over dump", Options{OnlyBoot: true, Dump: true}, ActionBootOnly},
		{"dump wins over flash", Options{Dump: true, Flash: true}, ActionDump},
		{"flash wins over plain upload", Options{Flash: true}, ActionFlashUpload},
		{"default is upload", Options{}, ActionUpload},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.opts.SelectAction())
		})
	}
}

func TestParseUSBSelectors(t *testing.T) {
	opts, err := Parse([]string{"-ubus=2", "-uport=5", "-t=3000"})
	assert.NoError(t, err)
	assert.Equal(t, 2, opts.USBBus)
	assert.Equal(t, 5, opts.USBPort)
	assert.Equal(t, 3000, opts.Timeout)
}
