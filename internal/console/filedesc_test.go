package console

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFileDescTableReservesStdinStderr(t *testing.T) {
	tbl := NewFileDescTable()
	assert.Equal(t, os.Stdin, tbl.Get(0))
	assert.Equal(t, os.Stderr, tbl.Get(1))
}

func TestFileDescTableOpenAllocatesLowestFree(t *testing.T) {
	tbl := NewFileDescTable()
	f1, err := os.CreateTemp(t.TempDir(), "a")
	assert.NoError(t, err)
	f2, err := os.CreateTemp(t.TempDir(), "b")
	assert.NoError(t, err)

	h1 := tbl.Open(f1)
	h2 := tbl.Open(f2)
	assert.Equal(t, 2, h1)
	assert.Equal(t, 3, h2)

	assert.NoError(t, tbl.Close(h1))
	h3 := tbl.Open(f2)
	assert.Equal(t, 2, h3, "closing a handle must free it for reuse at the lowest slot")
}

func TestFileDescTableCloseReservedHandleIsNoop(t *testing.T) {
	tbl := NewFileDescTable()
	assert.NoError(t, tbl.Close(0))
	assert.Equal(t, os.Stdin, tbl.Get(0), "closing handle 0 must not release the reserved stdin file")
}

func TestFileDescTableGetOutOfRange(t *testing.T) {
	tbl := NewFileDescTable()
	assert.Nil(t, tbl.Get(-1))
	assert.Nil(t, tbl.Get(MaxFiles))
}

func TestFileDescTableCloseUnopenedIsError(t *testing.T) {
	tbl := NewFileDescTable()
	assert.Error(t, tbl.Close(5))
}

func TestSanitizeFilenameStripsDirectoryPrefix(t *testing.T) {
	assert.Equal(t, "game.rom", SanitizeFilename("/cart/roms/game.rom"))
	assert.Equal(t, "game.rom", SanitizeFilename(`C:\roms\game.rom`))
	assert.Equal(t, "game.rom", SanitizeFilename("game.rom"))
}
