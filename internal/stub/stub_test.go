package stub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateBytesReturnsIndependentCopies(t *testing.T) {
	tpl := NewTemplate(0x1000, 0x1000, []byte{1, 2, 3, 4})

	a := tpl.Bytes()
	a[0] = 0xFF

	b := tpl.Bytes()
	assert.Equal(t, byte(1), b[0], "mutating one returned copy must not affect another")
}

func TestNewTemplateCopiesInputBody(t *testing.T) {
	body := []byte{1, 2, 3}
	tpl := NewTemplate(0, 0, body)
	body[0] = 0xFF

	assert.Equal(t, byte(1), tpl.Bytes()[0], "Template must not alias the caller's body slice")
}

func TestPatchedDoesNotMutateTemplate(t *testing.T) {
	tpl := NewTemplate(0, 0, []byte{0, 0, 0, 0})

	patched := tpl.Patched(func(b []byte) { b[0] = 0xAA })
	assert.Equal(t, byte(0xAA), patched[0])
	assert.Equal(t, byte(0), tpl.Bytes()[0], "Patched must not mutate the template's stored body")
}

func TestFlasherPatchFlashParamOverwritesSignature(t *testing.T) {
	patched, err := Flasher.PatchFlashParam(0x40000020)
	assert.NoError(t, err)
	assert.NotContains(t, string(patched), string(flashSignature))
	idx := 168
	assert.Equal(t, byte(0x40), patched[idx])
	assert.Equal(t, byte(0x00), patched[idx+1])
	assert.Equal(t, byte(0x00), patched[idx+2])
	assert.Equal(t, byte(0x20), patched[idx+3])
}

func TestFlasherPatchFlashParamMissingSignature(t *testing.T) {
	blank := NewTemplate(0x4100, 0x4100, make([]byte, 32))
	_, err := blank.PatchFlashParam(1)
	assert.Error(t, err)
}

func TestDumperWithBank2SetsOffset(t *testing.T) {
	plain := Dumper.WithBank2(false)
	assert.Equal(t, byte(0), plain[dumperBankOffset])

	banked := Dumper.WithBank2(true)
	assert.Equal(t, byte(1), banked[dumperBankOffset])
}

func TestSelectRevisionPicksUpgradeByCurrentVersion(t *testing.T) {
	rev, upToDate := SelectRevision(0x01, 0x00, 0x00)
	assert.False(t, upToDate)
	assert.Equal(t, Upgrade10204, rev)

	rev, upToDate = SelectRevision(0x02, 0x00, 0x00)
	assert.False(t, upToDate)
	assert.Equal(t, Upgrade30002, rev)

	_, upToDate = SelectRevision(0x03, 0x00, 0x02)
	assert.True(t, upToDate)

	_, upToDate = SelectRevision(0x03, 0x05, 0x00)
	assert.True(t, upToDate)
}
