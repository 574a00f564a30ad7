package ops

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vbauerster/mpb/v8"
)

func TestEraseBlockCountSmallDataUses32(t *testing.T) {
	assert.Equal(t, uint32(32), eraseBlockCount(FlashOptions{DataLen: 1024}))
}

func TestEraseBlockCountLargeDataUses62(t *testing.T) {
	assert.Equal(t, uint32(62), eraseBlockCount(FlashOptions{DataLen: 3 * 1024 * 1024}))
}

func TestEraseBlockCountEraseAllForces62EvenForSmallData(t *testing.T) {
	assert.Equal(t, uint32(62), eraseBlockCount(FlashOptions{DataLen: 1, EraseAll: true}))
}

func TestFlashParamWordSetsBankAndSlowBits(t *testing.T) {
	param := flashParamWord(FlashOptions{DataLen: 1, Bank2: true, SlowFlash: true})
	assert.Equal(t, uint32(0x80000000), param&0x80000000)
	assert.Equal(t, uint32(0x40000000), param&0x40000000)
	assert.Equal(t, uint32(32), param&0x00FFFFFF)
}

func TestFlashParamWordPlainHasNoBankOrSlowBits(t *testing.T) {
	param := flashParamWord(FlashOptions{DataLen: 1})
	assert.Equal(t, uint32(0), param&0xC0000000)
}

func TestWritePaddedPadsWithFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.Create(path)
	assert.NoError(t, err)
	defer f.Close()

	assert.NoError(t, writePadded(f, []byte{1, 2, 3}, 8))

	content, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, content)
}

func TestWritePaddedNoPadWhenDataAlreadyPastOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.Create(path)
	assert.NoError(t, err)
	defer f.Close()

	data := []byte{1, 2, 3, 4, 5}
	assert.NoError(t, writePadded(f, data, 3))

	content, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, data, content)
}

func TestBgSubstitutesBackgroundForNilContext(t *testing.T) {
	assert.Equal(t, context.Background(), bg(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.Equal(t, ctx, bg(ctx))
}

func TestNewBarNilWhenProgressUnset(t *testing.T) {
	tools := &Toolset{}
	assert.Nil(t, tools.newBar("x", 10))
}

func TestNewBarNilWhenTotalNonPositive(t *testing.T) {
	tools := &Toolset{Progress: mpb.New(mpb.WithOutput(io.Discard))}
	assert.Nil(t, tools.newBar("x", 0))
}

func TestIncrAndDoneAreNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		incr(nil, 10)
		done(nil)
	})
}

func TestSerialInfoStringFormatsHex(t *testing.T) {
	info := SerialInfo{VersionMajor: 0x01, VersionMinor: 0x02, VersionPatch: 0x03, SerialHi: 0xAB, SerialLo: 0xCD}
	assert.Equal(t, "Boot version 01.02.03, Serial abcd", info.String())
}

func TestDecodeSerialInfoReadsExpectedOffsets(t *testing.T) {
	buf := make([]byte, 12)
	buf[4], buf[5], buf[6] = 0x01, 0x02, 0x03
	buf[8], buf[9] = 0xAB, 0xCD
	info := decodeSerialInfo(buf)
	assert.Equal(t, SerialInfo{0x01, 0x02, 0x03, 0xAB, 0xCD}, info)
}

func TestSerialBannerProducesFiveRows(t *testing.T) {
	banner := SerialBanner(SerialInfo{VersionMajor: 0x01, VersionMinor: 0x02, VersionPatch: 0x03, SerialHi: 0xAB, SerialLo: 0xCD})
	lines := 0
	for _, c := range banner {
		if c == '\n' {
			lines++
		}
	}
	assert.Equal(t, 5, lines)
}
