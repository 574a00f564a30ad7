package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"jcp2/internal/jlog"
)

type writeRec struct {
	offset uint16
	data   []byte
}

type fakeTransport struct {
	writes       []writeRec
	lengthValues map[uint16]LengthState
	closed       bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		lengthValues: map[uint16]LengthState{
			uint16(W0) + OffsetLength(): LengthFree,
			uint16(W1) + OffsetLength(): LengthFree,
		},
	}
}

func (f *fakeTransport) Read(ctx context.Context, offset uint16, n int) ([]byte, error) {
	v := f.lengthValues[offset]
	return []byte{byte(v), byte(v >> 8)}, nil
}

func (f *fakeTransport) Write(ctx context.Context, offset uint16, data []byte) error {
	f.writes = append(f.writes, writeRec{offset, append([]byte(nil), data...)})
	if len(data) == WindowSize {
		// A booting block is acknowledged with LengthLocked; a no-boot block
		// is consumed and the window handed back as free.
		state := LengthLocked
		if e := DecodeMidEnd(data[offEntry : offEntry+4]); e == NoBoot || e == FlashReturn {
			state = LengthFree
		}
		f.lengthValues[offset+OffsetLength()] = state
	} else {
		f.lengthValues[offset] = LengthOf(data)
	}
	return nil
}

func (f *fakeTransport) PushStub(ctx context.Context, offset uint16, data []byte) error {
	return nil
}

func (f *fakeTransport) Reopen(ctx context.Context) error { return nil }

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func newTestSession() (*Session, *fakeTransport) {
	ct := newFakeTransport()
	return NewSession(ct, jlog.New()), ct
}

func TestWriteBlockAlternatesWindows(t *testing.T) {
	s, ct := newTestSession()
	ctx := context.Background()

	assert.Equal(t, W0, s.NextWindow())
	assert.NoError(t, s.WriteBlock(ctx, []byte("a"), 0x4000, NoBoot, 1, SendOptions{}))
	assert.Equal(t, W1, s.NextWindow())
	assert.NoError(t, s.WriteBlock(ctx, []byte("b"), 0x4000, NoBoot, 1, SendOptions{}))
	assert.Equal(t, W0, s.NextWindow())

	assert.Len(t, ct.writes, 2)
	assert.Equal(t, uint16(W1), ct.writes[0].offset)
	assert.Equal(t, uint16(W0), ct.writes[1].offset)
}

func TestWriteBlockRefusesProtectedRegion(t *testing.T) {
	s, ct := newTestSession()
	ctx := context.Background()

	err := s.WriteBlock(ctx, []byte("x"), 0x2800, NoBoot, 1, SendOptions{})
	assert.NoError(t, err)
	assert.Empty(t, ct.writes)
}

func TestWriteBlockAllowsDummyBaseAlways(t *testing.T) {
	assert.False(t, isRefused(DummyBase, SendOptions{}))
	assert.False(t, isRefused(DummyBase, SendOptions{FlashActive: false}))
}

func TestWriteBlockFlashRegionRules(t *testing.T) {
	assert.True(t, isRefused(0x800000, SendOptions{FlashActive: false}))
	assert.False(t, isRefused(0x802000, SendOptions{FlashActive: true}))
	assert.True(t, isRefused(0x300000, SendOptions{FlashActive: false}))
	assert.False(t, isRefused(0x300000, SendOptions{FlashActive: true}))
	assert.True(t, isRefused(0x2000, SendOptions{}))
	assert.False(t, isRefused(0x3000, SendOptions{}))
}

func TestWriteBlockCartridgeHeaderNeedsSixMiBBank1(t *testing.T) {
	assert.True(t, isRefused(0x800500, SendOptions{FlashActive: true}))
	assert.False(t, isRefused(0x800500, SendOptions{FlashActive: true, SixMiB: true, Bank2: false}))
	assert.True(t, isRefused(0x800500, SendOptions{FlashActive: true, SixMiB: true, Bank2: true}))
}

func TestSendPayloadNoBootRealignsToW0(t *testing.T) {
	s, ct := newTestSession()
	ctx := context.Background()

	data := make([]byte, 2*PayloadSize+1) // 3 chunks -> odd count -> ends at W1, needs dummy realign
	err := s.SendPayload(ctx, data, 0x4000, 0x4000, SendOptions{NoBoot: true})
	assert.NoError(t, err)
	assert.Equal(t, W0, s.NextWindow())

	// 3 payload chunks + 1 dummy realignment block.
	assert.Len(t, ct.writes, 4)
	last := ct.writes[len(ct.writes)-1]
	assert.Equal(t, uint16(W0), last.offset)

	decoded := DecodeReceivedBlock([WindowSize]byte(last.data))
	assert.Equal(t, int32(DummyBase), decoded.Base)
	assert.Equal(t, int32(NoBoot), decoded.Entry)
}

func TestSendPayloadEvenChunksNoDummy(t *testing.T) {
	s, ct := newTestSession()
	ctx := context.Background()

	data := make([]byte, PayloadSize+1) // 2 chunks -> ends at W0 already
	err := s.SendPayload(ctx, data, 0x4000, 0x4000, SendOptions{NoBoot: true})
	assert.NoError(t, err)
	assert.Equal(t, W0, s.NextWindow())
	assert.Len(t, ct.writes, 2)
}

func TestSendPayloadAppliesBankModifierOnFinalChunk(t *testing.T) {
	s, ct := newTestSession()
	ctx := context.Background()

	err := s.SendPayload(ctx, []byte("hi"), 0x300000, 0x4100, SendOptions{FlashActive: true, Bank2: true})
	assert.NoError(t, err)
	assert.Len(t, ct.writes, 1)

	decoded := DecodeReceivedBlock([WindowSize]byte(ct.writes[0].data))
	assert.Equal(t, int32(0x4100|0x10000000), decoded.Entry)
}
