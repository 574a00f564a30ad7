package console

import (
	"bufio"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func simpleMsg(code uint16, body []byte) []byte {
	msg := make([]byte, 2+len(body))
	msg[0] = byte(code >> 8)
	msg[1] = byte(code)
	copy(msg[2:], body)
	return msg
}

func TestSimpleProtocolNopReturnsNothing(t *testing.T) {
	p := NewSimpleProtocol()
	reply, term, err := p.Handle(context.Background(), simpleMsg(simpleNop, nil))
	assert.NoError(t, err)
	assert.False(t, term)
	assert.Nil(t, reply)
}

func TestSimpleProtocolTerminateSignalsStop(t *testing.T) {
	p := NewSimpleProtocol()
	_, term, err := p.Handle(context.Background(), simpleMsg(simpleTerminate, nil))
	assert.NoError(t, err)
	assert.True(t, term)
}

func TestSimpleProtocolWriteReadCloseRoundTrip(t *testing.T) {
	p := NewSimpleProtocol()
	path := filepath.Join(t.TempDir(), "out.bin")

	_, _, err := p.Handle(context.Background(), simpleMsg(simpleOpenWrite, append([]byte(path), 0)))
	assert.NoError(t, err)

	_, _, err = p.Handle(context.Background(), simpleMsg(simpleWrite, []byte("abc")))
	assert.NoError(t, err)

	_, _, err = p.Handle(context.Background(), simpleMsg(simpleClose, nil))
	assert.NoError(t, err)
	assert.Nil(t, p.current)

	_, _, err = p.Handle(context.Background(), simpleMsg(simpleOpenRead, append([]byte(path), 0)))
	assert.NoError(t, err)

	reply, _, err := p.Handle(context.Background(), simpleMsg(simpleRead, nil))
	assert.NoError(t, err)
	assert.Equal(t, "abc", string(reply))
}

func TestSimpleProtocolWriteWithNoOpenFileIsError(t *testing.T) {
	p := NewSimpleProtocol()
	_, _, err := p.Handle(context.Background(), simpleMsg(simpleWrite, []byte("x")))
	assert.Error(t, err)
}

func TestSimpleProtocolOpenWriteClosesPreviousFile(t *testing.T) {
	p := NewSimpleProtocol()
	dir := t.TempDir()
	_, _, err := p.Handle(context.Background(), simpleMsg(simpleOpenWrite, append([]byte(filepath.Join(dir, "a")), 0)))
	assert.NoError(t, err)
	first := p.current

	_, _, err = p.Handle(context.Background(), simpleMsg(simpleOpenWrite, append([]byte(filepath.Join(dir, "b")), 0)))
	assert.NoError(t, err)

	_, statErr := first.Write([]byte("x"))
	assert.Error(t, statErr, "the previously-open file must be closed before a new one replaces it")
}

func TestSimpleProtocolReadStdinStripsNewlineAndReturnsNulTerminated(t *testing.T) {
	p := &SimpleProtocol{Stdin: bufio.NewReader(strings.NewReader("hello world\n"))}
	reply, _, err := p.Handle(context.Background(), simpleMsg(simpleReadStdin, nil))
	assert.NoError(t, err)
	assert.Equal(t, "hello world\x00", string(reply))
}

func TestStripTrailingControlRemovesNewlineAndCR(t *testing.T) {
	assert.Equal(t, "abc", stripTrailingControl("abc\r\n"))
	assert.Equal(t, "abc", stripTrailingControl("abc"))
}

func TestIsEscapeDetectsSentinel(t *testing.T) {
	assert.True(t, isEscape([]byte{0xFF, 0xFF, 0, 1}))
	assert.False(t, isEscape([]byte{0x00, 0xFF, 0, 1}))
	assert.False(t, isEscape([]byte{0xFF}))
}

func TestNulTerminatedStopsAtFirstNul(t *testing.T) {
	assert.Equal(t, "abc", nulTerminated([]byte("abc\x00def")))
	assert.Equal(t, "abc", nulTerminated([]byte("abc")))
}
