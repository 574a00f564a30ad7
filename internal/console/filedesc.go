package console

import (
	"fmt"
	"os"
	"strings"
)

// MaxFiles is the size of the fixed handle table. Handles 0 and 1 are
// reserved for stdin and stderr; handles 2..MaxFiles-1 are user files.
const MaxFiles = 64

// FileDescTable is a fixed-size handle table mirroring the receiver's
// remote-file RPC: lowest-free allocation starting at 2.
type FileDescTable struct {
	files [MaxFiles]*os.File
}

// NewFileDescTable returns a table with handles 0 (stdin) and 1 (stderr)
// already populated.
func NewFileDescTable() *FileDescTable {
	t := &FileDescTable{}
	t.files[0] = os.Stdin
	t.files[1] = os.Stderr
	return t
}

// Open allocates the lowest free handle >= 2 for f, or -1 if the table
// is full.
func (t *FileDescTable) Open(f *os.File) int {
	for i := 2; i < MaxFiles; i++ {
		if t.files[i] == nil {
			t.files[i] = f
			return i
		}
	}
	return -1
}

// Get returns the file at handle, or nil if handle is out of range or
// unassigned.
func (t *FileDescTable) Get(handle int) *os.File {
	if handle < 0 || handle >= MaxFiles {
		return nil
	}
	return t.files[handle]
}

// Close releases handle and closes the underlying file. Closing one of the
// two reserved standard handles is a no-op: it stays assigned and open.
func (t *FileDescTable) Close(handle int) error {
	f := t.Get(handle)
	if f == nil {
		return fmt.Errorf("fd %d not open", handle)
	}
	if handle <= 1 {
		return nil
	}
	t.files[handle] = nil
	return f.Close()
}

// SanitizeFilename strips any directory prefix, keeping only the final
// path component — the console RPC never lets the receiver address a
// path outside the PC's working directory.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
